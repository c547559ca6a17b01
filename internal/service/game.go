package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rps-arena/internal/game"
	"github.com/rps-arena/internal/models"
	"github.com/rps-arena/internal/storage"
	"github.com/rps-arena/pkg/logger"
)

// Errors
var (
	ErrExhibitionRunning    = errors.New("exhibition already running")
	ErrExhibitionNotRunning = errors.New("exhibition not running")
	ErrInvalidInterval      = errors.New("exhibition interval must be positive")
)

const subscriberBuffer = 16

// GameService owns the live game sessions and keeps their persisted copy in
// step with every round
type GameService struct {
	storage         storage.SessionRepository
	logger          *logger.Logger
	newAI           func() game.Chooser
	newExhibitor    func() game.Chooser
	defaultInterval time.Duration
	idleTimeout     time.Duration
	now             func() time.Time
	metrics         *metrics

	mu   sync.Mutex
	live map[string]*liveSession

	stopSweep context.CancelFunc
	sweepDone chan struct{}
	closeOnce sync.Once
}

// liveSession guards one game.Session. Every field is protected by mu.
// A dropped session is no longer in the cache and must not be used.
type liveSession struct {
	mu         sync.Mutex
	dropped    bool
	id         string
	ai         game.Chooser
	exhibitor  game.Chooser
	session    *game.Session
	createdAt  time.Time
	updatedAt  time.Time
	exhibition *exhibition
	nextSub    int
	subs       map[int]chan models.RoundResult
}

// Option configures a GameService
type Option func(*GameService)

// WithAIFactory sets how the computer opponent of each session is built
func WithAIFactory(f func() game.Chooser) Option {
	return func(s *GameService) { s.newAI = f }
}

// WithExhibitorFactory sets how the player side of automated rounds is built
func WithExhibitorFactory(f func() game.Chooser) Option {
	return func(s *GameService) { s.newExhibitor = f }
}

// WithExhibitionInterval sets the default cadence of automated rounds
func WithExhibitionInterval(d time.Duration) Option {
	return func(s *GameService) { s.defaultInterval = d }
}

// WithIdleTimeout evicts cached sessions that have not been played for d.
// Evicted sessions are restored from storage on next use. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *GameService) { s.idleTimeout = d }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// NewGameService creates a new game service
func NewGameService(storage storage.SessionRepository, log *logger.Logger, opts ...Option) *GameService {
	s := &GameService{
		storage:         storage,
		logger:          log,
		newAI:           func() game.Chooser { return game.NewAgent() },
		newExhibitor:    func() game.Chooser { return game.NewAgent() },
		defaultInterval: 800 * time.Millisecond,
		now:             time.Now,
		metrics:         newMetrics(log),
		live:            make(map[string]*liveSession),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.idleTimeout > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopSweep = cancel
		s.sweepDone = make(chan struct{})
		go s.runSweeper(ctx)
	}
	return s
}

// StartSession creates a fresh session with zero scores
func (s *GameService) StartSession(ctx context.Context) (*models.SessionResponse, error) {
	now := s.now()
	ls := &liveSession{
		id:        uuid.New().String(),
		ai:        s.newAI(),
		exhibitor: s.newExhibitor(),
		createdAt: now,
		updatedAt: now,
		subs:      make(map[int]chan models.RoundResult),
	}
	ls.session = game.NewSession(ls.ai, game.WithExhibitionPlayer(ls.exhibitor))

	if err := s.storage.CreateSession(ctx, ls.record()); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.mu.Lock()
	s.live[ls.id] = ls
	s.mu.Unlock()

	s.metrics.sessionStarted(ctx)
	s.logger.Info("Session started", logger.F("session_id", ls.id))

	return ls.response(), nil
}

// GetSession returns the scores and history of a session
func (s *GameService) GetSession(ctx context.Context, sessionID string) (*models.SessionResponse, error) {
	ls, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()
	return ls.response(), nil
}

// PlayRound resolves the player's move against the session AI
func (s *GameService) PlayRound(ctx context.Context, sessionID, move string) (*models.RoundResult, error) {
	playerMove, err := game.ParseMove(move)
	if err != nil {
		return nil, err
	}

	result, err := s.mutate(ctx, sessionID, func(ls *liveSession) (models.RoundResult, error) {
		aiMove, outcome, err := ls.session.ResolveRound(playerMove)
		if err != nil {
			return models.RoundResult{}, err
		}
		return ls.result(playerMove, aiMove, outcome, false, s.now()), nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.roundResolved(ctx, result.Outcome, false)
	s.logger.Debug("Round resolved",
		logger.F("session_id", sessionID),
		logger.F("player_move", result.PlayerMove.String()),
		logger.F("ai_move", result.AIMove.String()),
		logger.F("outcome", result.Outcome.String()))
	return &result, nil
}

// PlayAutomatedRound resolves one AI-vs-AI round
func (s *GameService) PlayAutomatedRound(ctx context.Context, sessionID string) (*models.RoundResult, error) {
	result, err := s.mutate(ctx, sessionID, func(ls *liveSession) (models.RoundResult, error) {
		playerMove, aiMove, outcome, err := ls.session.ResolveAutomatedRound()
		if err != nil {
			return models.RoundResult{}, err
		}
		return ls.result(playerMove, aiMove, outcome, true, s.now()), nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.roundResolved(ctx, result.Outcome, true)
	return &result, nil
}

// ResetSession zeroes the scores, clears the history and turns the
// exhibition off
func (s *GameService) ResetSession(ctx context.Context, sessionID string) (*models.SessionResponse, error) {
	var ls *liveSession
	for {
		var err error
		if ls, err = s.acquire(ctx, sessionID); err != nil {
			return nil, err
		}
		if ls.exhibition == nil {
			break
		}
		// The loop needs ls.mu to finish its tick, so stop it unlocked and
		// check again in case another exhibition started meanwhile.
		ls.mu.Unlock()
		s.stopExhibition(ls)
	}
	defer ls.mu.Unlock()

	prev := ls.session.History()
	prevUpdated := ls.updatedAt
	ls.session.Reset()
	ls.updatedAt = s.now()

	if err := s.storage.SaveSession(ctx, ls.record()); err != nil {
		ls.rollback(prev)
		ls.updatedAt = prevUpdated
		if errors.Is(err, storage.ErrSessionNotFound) {
			s.dropLocked(ls)
		}
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Session reset", logger.F("session_id", sessionID), logger.F("cleared_rounds", len(prev)))
	return ls.response(), nil
}

// Stats returns the per-move frequency tally of a session
func (s *GameService) Stats(ctx context.Context, sessionID string) (*models.StatsResponse, error) {
	ls, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()

	freq := ls.session.MoveFrequencies()
	counts := make([]models.MoveCount, 0, len(game.Moves))
	for _, m := range game.Moves {
		counts = append(counts, models.MoveCount{Move: m, Player: freq[m].Player, AI: freq[m].AI})
	}

	return &models.StatsResponse{
		SessionID:   ls.id,
		Scores:      ls.scores(),
		Rounds:      len(ls.session.History()),
		Frequencies: counts,
	}, nil
}

// DeleteSession stops the session's exhibition, disconnects its watchers
// and removes it from storage
func (s *GameService) DeleteSession(ctx context.Context, sessionID string) error {
	ls, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}

	s.stopExhibition(ls)

	err = s.storage.DeleteSession(ctx, sessionID)
	if err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	ls.mu.Lock()
	s.dropLocked(ls)
	ls.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("Session deleted", logger.F("session_id", sessionID))
	return nil
}

// Subscribe streams every round resolved in the session until cancel is
// called or the session is deleted. Slow readers miss rounds rather than
// stall play.
func (s *GameService) Subscribe(ctx context.Context, sessionID string) (<-chan models.RoundResult, func(), error) {
	ls, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	defer ls.mu.Unlock()

	id := ls.nextSub
	ls.nextSub++
	ch := make(chan models.RoundResult, subscriberBuffer)
	ls.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ls.mu.Lock()
			defer ls.mu.Unlock()
			if c, ok := ls.subs[id]; ok {
				close(c)
				delete(ls.subs, id)
			}
		})
	}
	return ch, cancel, nil
}

// Close stops every running exhibition and the idle sweeper
func (s *GameService) Close() {
	s.closeOnce.Do(func() {
		if s.stopSweep != nil {
			s.stopSweep()
			<-s.sweepDone
		}
	})

	s.mu.Lock()
	sessions := make([]*liveSession, 0, len(s.live))
	for _, ls := range s.live {
		sessions = append(sessions, ls)
	}
	s.mu.Unlock()

	for _, ls := range sessions {
		s.stopExhibition(ls)
	}
}

// load returns the live session, restoring it from storage on first use.
// The stored record is checked on every call so that sessions removed behind
// the service's back (expiry, another writer) leave the cache too.
func (s *GameService) load(ctx context.Context, sessionID string) (*liveSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required: %w", storage.ErrSessionNotFound)
	}

	record, err := s.storage.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			s.forget(sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.mu.Lock()
	ls, ok := s.live[sessionID]
	s.mu.Unlock()
	if ok {
		return ls, nil
	}

	ls = &liveSession{
		id:        record.SessionID,
		ai:        s.newAI(),
		exhibitor: s.newExhibitor(),
		createdAt: record.CreatedAt,
		updatedAt: record.UpdatedAt,
		subs:      make(map[int]chan models.RoundResult),
	}
	ls.session, err = game.Restore(ls.ai, record.History, game.WithExhibitionPlayer(ls.exhibitor))
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.live[sessionID]; ok {
		return existing, nil
	}
	s.live[sessionID] = ls

	s.logger.Debug("Session restored", logger.F("session_id", sessionID), logger.F("rounds", len(record.History)))
	return ls, nil
}

// acquire loads the session and returns it with ls.mu held. A session
// dropped between the two steps is loaded again.
func (s *GameService) acquire(ctx context.Context, sessionID string) (*liveSession, error) {
	for {
		ls, err := s.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		ls.mu.Lock()
		if !ls.dropped {
			return ls, nil
		}
		ls.mu.Unlock()
	}
}

// forget drops the cached session, if any
func (s *GameService) forget(sessionID string) {
	s.mu.Lock()
	ls, ok := s.live[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}

	ls.mu.Lock()
	s.dropLocked(ls)
	ls.mu.Unlock()
}

// dropLocked removes ls from the cache, disconnects its watchers and cancels
// its exhibition without waiting for the loop. ls.mu must be held.
func (s *GameService) dropLocked(ls *liveSession) {
	if ls.dropped {
		return
	}
	ls.dropped = true

	if ls.exhibition != nil {
		ls.exhibition.cancel()
		ls.exhibition = nil
	}
	for id, ch := range ls.subs {
		close(ch)
		delete(ls.subs, id)
	}

	s.mu.Lock()
	if s.live[ls.id] == ls {
		delete(s.live, ls.id)
	}
	s.mu.Unlock()

	s.logger.Debug("Session dropped from cache", logger.F("session_id", ls.id))
}

// mutate runs play under the session lock and persists the new state. A
// failed save rolls the in-memory session back to where it was.
func (s *GameService) mutate(ctx context.Context, sessionID string, play func(*liveSession) (models.RoundResult, error)) (models.RoundResult, error) {
	ls, err := s.acquire(ctx, sessionID)
	if err != nil {
		return models.RoundResult{}, err
	}
	defer ls.mu.Unlock()

	prev := ls.session.History()
	prevUpdated := ls.updatedAt

	result, err := play(ls)
	if err != nil {
		return models.RoundResult{}, err
	}
	ls.updatedAt = result.PlayedAt

	if err := s.storage.SaveSession(ctx, ls.record()); err != nil {
		ls.rollback(prev)
		ls.updatedAt = prevUpdated
		if errors.Is(err, storage.ErrSessionNotFound) {
			s.dropLocked(ls)
			return models.RoundResult{}, fmt.Errorf("failed to save session: %w", err)
		}
		s.logger.Error("Failed to save session", logger.F("session_id", ls.id), logger.Err(err))
		return models.RoundResult{}, fmt.Errorf("failed to save session: %w", err)
	}

	ls.publish(result)
	return result, nil
}

func (ls *liveSession) rollback(history []game.Round) {
	// history came out of a valid session, so Restore cannot fail here
	restored, err := game.Restore(ls.ai, history, game.WithExhibitionPlayer(ls.exhibitor))
	if err == nil {
		ls.session = restored
	}
}

func (ls *liveSession) publish(result models.RoundResult) {
	for _, ch := range ls.subs {
		select {
		case ch <- result:
		default:
		}
	}
}

func (ls *liveSession) scores() models.Scoreboard {
	return models.Scoreboard{
		Player: ls.session.PlayerScore(),
		AI:     ls.session.AIScore(),
		Tie:    ls.session.TieCount(),
	}
}

func (ls *liveSession) result(player, ai game.Move, outcome game.Outcome, automated bool, at time.Time) models.RoundResult {
	return models.RoundResult{
		SessionID:  ls.id,
		Round:      len(ls.session.History()),
		PlayerMove: player,
		AIMove:     ai,
		Outcome:    outcome,
		Automated:  automated,
		Scores:     ls.scores(),
		PlayedAt:   at,
	}
}

func (ls *liveSession) record() *models.SessionRecord {
	snap := ls.session.Snapshot()
	return &models.SessionRecord{
		SessionID:   ls.id,
		PlayerScore: snap.PlayerScore,
		AIScore:     snap.AIScore,
		TieCount:    snap.TieCount,
		History:     snap.History,
		CreatedAt:   ls.createdAt,
		UpdatedAt:   ls.updatedAt,
	}
}

func (ls *liveSession) response() *models.SessionResponse {
	history := ls.session.History()
	return &models.SessionResponse{
		SessionID:  ls.id,
		Scores:     ls.scores(),
		Rounds:     len(history),
		History:    history,
		Exhibition: ls.exhibition != nil,
		CreatedAt:  ls.createdAt,
		UpdatedAt:  ls.updatedAt,
	}
}
