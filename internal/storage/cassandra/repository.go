package cassandra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rps-arena/internal/game"
	"github.com/rps-arena/internal/models"
	"github.com/rps-arena/internal/storage"
	"github.com/rps-arena/pkg/logger"
)

// Repository implements SessionRepository using Cassandra
type Repository struct {
	client  *Client
	logger  *logger.Logger
	timeout time.Duration
}

// NewRepository creates a new Cassandra-based session repository
func NewRepository(client *Client, log *logger.Logger, timeout time.Duration) *Repository {
	return &Repository{
		client:  client,
		logger:  log,
		timeout: timeout,
	}
}

// queryContext applies the configured timeout unless ctx already has a deadline
func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	queryCtx, cancel := ctx, context.CancelFunc(func() {})
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		queryCtx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	if err := queryCtx.Err(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("context cancelled: %w", err)
	}
	return queryCtx, cancel, nil
}

// CreateSession inserts a new session
func (r *Repository) CreateSession(ctx context.Context, record *models.SessionRecord) error {
	history, err := encodeHistory(record.History)
	if err != nil {
		return err
	}

	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s.game_sessions (session_id, player_score, ai_score, tie_count, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		IF NOT EXISTS`, r.client.Keyspace())

	applied, err := r.client.Session().Query(query,
		record.SessionID,
		record.PlayerScore,
		record.AIScore,
		record.TieCount,
		history,
		record.CreatedAt,
		record.UpdatedAt,
	).WithContext(queryCtx).MapScanCAS(map[string]interface{}{})

	if err != nil {
		r.logger.Error("Failed to create session in Cassandra",
			logger.F("session_id", record.SessionID),
			logger.Err(err))
		return fmt.Errorf("failed to create session: %w", err)
	}

	if !applied {
		return storage.ErrSessionExists
	}

	r.logger.Debug("Session created", logger.F("session_id", record.SessionID))
	return nil
}

// GetSession retrieves a session by ID
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := fmt.Sprintf(`
		SELECT session_id, player_score, ai_score, tie_count, history, created_at, updated_at
		FROM %s.game_sessions
		WHERE session_id = ?`, r.client.Keyspace())

	var (
		record  models.SessionRecord
		history string
	)
	err = r.client.Session().Query(query, sessionID).WithContext(queryCtx).Scan(
		&record.SessionID,
		&record.PlayerScore,
		&record.AIScore,
		&record.TieCount,
		&history,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, storage.ErrSessionNotFound
		}
		r.logger.Error("Failed to get session from Cassandra",
			logger.F("session_id", sessionID),
			logger.Err(err))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if record.History, err = decodeHistory(history); err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveSession overwrites the counters and history of an existing session
func (r *Repository) SaveSession(ctx context.Context, record *models.SessionRecord) error {
	history, err := encodeHistory(record.History)
	if err != nil {
		return err
	}

	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s.game_sessions
		SET player_score = ?, ai_score = ?, tie_count = ?, history = ?, updated_at = ?
		WHERE session_id = ?
		IF EXISTS`, r.client.Keyspace())

	applied, err := r.client.Session().Query(query,
		record.PlayerScore,
		record.AIScore,
		record.TieCount,
		history,
		record.UpdatedAt,
		record.SessionID,
	).WithContext(queryCtx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		r.logger.Error("Failed to save session in Cassandra",
			logger.F("session_id", record.SessionID),
			logger.Err(err))
		return fmt.Errorf("failed to save session: %w", err)
	}

	if !applied {
		return storage.ErrSessionNotFound
	}

	r.logger.Debug("Session saved", logger.F("session_id", record.SessionID), logger.F("rounds", len(record.History)))
	return nil
}

// DeleteSession removes a session
func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s.game_sessions WHERE session_id = ? IF EXISTS`, r.client.Keyspace())

	applied, err := r.client.Session().Query(query, sessionID).WithContext(queryCtx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !applied {
		return storage.ErrSessionNotFound
	}
	return nil
}

func encodeHistory(history []game.Round) (string, error) {
	if history == nil {
		history = []game.Round{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("failed to marshal history: %w", err)
	}
	return string(data), nil
}

func decodeHistory(data string) ([]game.Round, error) {
	if data == "" {
		return []game.Round{}, nil
	}
	var history []game.Round
	if err := json.Unmarshal([]byte(data), &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return history, nil
}
