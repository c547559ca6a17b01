package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rps-arena/internal/game"
	"github.com/rps-arena/internal/models"
	"github.com/rps-arena/internal/storage"
	_ "modernc.org/sqlite"
)

// Store implements SessionRepository using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and creates if needed) the database at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single writer connection keeps SQLITE_BUSY out of the picture.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS game_sessions (
		session_id TEXT PRIMARY KEY,
		player_score INTEGER NOT NULL DEFAULT 0,
		ai_score INTEGER NOT NULL DEFAULT 0,
		tie_count INTEGER NOT NULL DEFAULT 0,
		history TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_game_sessions_updated ON game_sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, record *models.SessionRecord) error {
	history, err := marshalHistory(record.History)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO game_sessions (session_id, player_score, ai_score, tie_count, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		record.SessionID, record.PlayerScore, record.AIScore, record.TieCount, history,
		record.CreatedAt.UnixNano(), record.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrSessionExists
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	var (
		record             models.SessionRecord
		history            string
		createdAt, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, player_score, ai_score, tie_count, history, created_at, updated_at
		FROM game_sessions WHERE session_id = ?`, sessionID,
	).Scan(&record.SessionID, &record.PlayerScore, &record.AIScore, &record.TieCount, &history, &createdAt, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	if err := json.Unmarshal([]byte(history), &record.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	record.CreatedAt = time.Unix(0, createdAt)
	record.UpdatedAt = time.Unix(0, updated)
	return &record, nil
}

// SaveSession overwrites an existing session.
func (s *Store) SaveSession(ctx context.Context, record *models.SessionRecord) error {
	history, err := marshalHistory(record.History)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE game_sessions
		SET player_score = ?, ai_score = ?, tie_count = ?, history = ?, updated_at = ?
		WHERE session_id = ?`,
		record.PlayerScore, record.AIScore, record.TieCount, history, record.UpdatedAt.UnixNano(), record.SessionID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM game_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrSessionNotFound
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalHistory(history []game.Round) (string, error) {
	if history == nil {
		history = []game.Round{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}
	return string(data), nil
}
