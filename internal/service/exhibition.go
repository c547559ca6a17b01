package service

import (
	"context"
	"errors"
	"time"

	"github.com/rps-arena/internal/models"
	"github.com/rps-arena/internal/storage"
	"github.com/rps-arena/pkg/logger"
)

// exhibition is a running AI-vs-AI loop for one session
type exhibition struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// StartExhibition plays automated rounds on a ticker until stopped. A zero
// interval selects the service default.
func (s *GameService) StartExhibition(ctx context.Context, sessionID string, interval time.Duration) (*models.ExhibitionResponse, error) {
	if interval == 0 {
		interval = s.defaultInterval
	}
	if interval < 0 {
		return nil, ErrInvalidInterval
	}

	ls, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()

	if ls.exhibition != nil {
		return nil, ErrExhibitionRunning
	}

	// The loop outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.Background())
	ex := &exhibition{
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	ls.exhibition = ex

	go s.runExhibition(runCtx, ls.id, ex)

	s.logger.Info("Exhibition started", logger.F("session_id", sessionID), logger.F("interval", interval.String()))
	return &models.ExhibitionResponse{
		SessionID:  sessionID,
		Running:    true,
		IntervalMs: interval.Milliseconds(),
	}, nil
}

// StopExhibition stops the session's automated rounds and waits for the
// loop to exit
func (s *GameService) StopExhibition(ctx context.Context, sessionID string) (*models.ExhibitionResponse, error) {
	ls, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !s.stopExhibition(ls) {
		return nil, ErrExhibitionNotRunning
	}

	s.logger.Info("Exhibition stopped", logger.F("session_id", sessionID))
	return &models.ExhibitionResponse{SessionID: sessionID, Running: false}, nil
}

// stopExhibition reports whether an exhibition was running. It must be
// called without ls.mu held because the loop takes the lock on every tick.
func (s *GameService) stopExhibition(ls *liveSession) bool {
	ls.mu.Lock()
	ex := ls.exhibition
	ls.exhibition = nil
	ls.mu.Unlock()

	if ex == nil {
		return false
	}
	ex.cancel()
	<-ex.done
	return true
}

func (s *GameService) runExhibition(ctx context.Context, sessionID string, ex *exhibition) {
	defer close(ex.done)

	ticker := time.NewTicker(ex.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PlayAutomatedRound(ctx, sessionID); err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, storage.ErrSessionNotFound) {
					s.logger.Warn("Exhibition session vanished", logger.F("session_id", sessionID))
					return
				}
				s.logger.Error("Exhibition round failed", logger.F("session_id", sessionID), logger.Err(err))
			}
		}
	}
}

// runSweeper evicts idle sessions until ctx is cancelled
func (s *GameService) runSweeper(ctx context.Context) {
	defer close(s.sweepDone)

	ticker := time.NewTicker(max(s.idleTimeout/4, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				s.logger.Debug("Evicted idle sessions", logger.F("count", n))
			}
		}
	}
}

// sweep drops cached sessions idle for longer than the idle timeout.
// Sessions with watchers or a running exhibition stay cached.
func (s *GameService) sweep() int {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	sessions := make([]*liveSession, 0, len(s.live))
	for _, ls := range s.live {
		sessions = append(sessions, ls)
	}
	s.mu.Unlock()

	evicted := 0
	for _, ls := range sessions {
		ls.mu.Lock()
		if !ls.dropped && ls.exhibition == nil && len(ls.subs) == 0 && ls.updatedAt.Before(cutoff) {
			s.dropLocked(ls)
			evicted++
		}
		ls.mu.Unlock()
	}
	return evicted
}
