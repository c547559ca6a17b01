package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rps-arena/internal/game"
	"github.com/rps-arena/internal/models"
	"github.com/rps-arena/internal/storage"
	"github.com/rps-arena/pkg/logger"
)

// vanishingStorage reports every save as a missing session once armed,
// the way an expiring backend does after the key's TTL ran out
type vanishingStorage struct {
	*storage.MemoryStorage
	mu   sync.Mutex
	gone bool
}

func (v *vanishingStorage) arm(gone bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gone = gone
}

func (v *vanishingStorage) SaveSession(ctx context.Context, record *models.SessionRecord) error {
	v.mu.Lock()
	gone := v.gone
	v.mu.Unlock()
	if gone {
		return storage.ErrSessionNotFound
	}
	return v.MemoryStorage.SaveSession(ctx, record)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func liveCount(s *GameService) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func TestGameService_RecordRemovedFromStorage(t *testing.T) {
	repo := storage.NewMemoryStorage()
	svc, _ := newTestService(t, repo, game.Scissors, game.Rock)
	ctx := context.Background()

	session, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.PlayRound(ctx, session.SessionID, "rock"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rounds, cancel, err := svc.Subscribe(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	if err := repo.DeleteSession(ctx, session.SessionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.GetSession(ctx, session.SessionID); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound from GetSession, got %v", err)
	}
	if _, err := svc.Stats(ctx, session.SessionID); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound from Stats, got %v", err)
	}
	if _, err := svc.PlayRound(ctx, session.SessionID, "rock"); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound from PlayRound, got %v", err)
	}
	if n := liveCount(svc); n != 0 {
		t.Errorf("expected empty cache, got %d sessions", n)
	}
	if _, ok := <-rounds; ok {
		t.Errorf("expected subscriber channel to be closed")
	}
}

func TestGameService_SaveMissingSessionDropsCache(t *testing.T) {
	tests := []struct {
		name string
		op   func(ctx context.Context, svc *GameService, id string) error
	}{
		{
			name: "play round",
			op: func(ctx context.Context, svc *GameService, id string) error {
				_, err := svc.PlayRound(ctx, id, "paper")
				return err
			},
		},
		{
			name: "automated round",
			op: func(ctx context.Context, svc *GameService, id string) error {
				_, err := svc.PlayAutomatedRound(ctx, id)
				return err
			},
		},
		{
			name: "reset",
			op: func(ctx context.Context, svc *GameService, id string) error {
				_, err := svc.ResetSession(ctx, id)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &vanishingStorage{MemoryStorage: storage.NewMemoryStorage()}
			svc, _ := newTestService(t, repo, game.Rock, game.Paper)
			ctx := context.Background()

			session, err := svc.StartSession(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := svc.PlayRound(ctx, session.SessionID, "rock"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			rounds, cancel, err := svc.Subscribe(ctx, session.SessionID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer cancel()

			repo.arm(true)
			if err := tt.op(ctx, svc, session.SessionID); !errors.Is(err, storage.ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound, got %v", err)
			}
			if n := liveCount(svc); n != 0 {
				t.Errorf("expected empty cache, got %d sessions", n)
			}
			if _, ok := <-rounds; ok {
				t.Errorf("expected subscriber channel to be closed")
			}

			repo.arm(false)
			got, err := svc.GetSession(ctx, session.SessionID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Rounds != 1 {
				t.Errorf("expected the stored round only, got %d", got.Rounds)
			}
		})
	}
}

func TestGameService_ExhibitionEndsWhenRecordRemoved(t *testing.T) {
	repo := storage.NewMemoryStorage()
	svc, _ := newTestService(t, repo, game.Paper, game.Rock)
	ctx := context.Background()

	session, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rounds, cancel, err := svc.Subscribe(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	if _, err := svc.StartExhibition(ctx, session.SessionID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.DeleteSession(ctx, session.SessionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-rounds:
			if !ok {
				if n := liveCount(svc); n != 0 {
					t.Errorf("expected empty cache, got %d sessions", n)
				}
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for the watcher to be disconnected")
		}
	}
}

func TestGameService_SweepEvictsIdleSessions(t *testing.T) {
	repo := storage.NewMemoryStorage()
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewGameService(repo, logger.Discard(),
		WithAIFactory(func() game.Chooser { return &fixedChooser{move: game.Scissors} }),
		WithIdleTimeout(time.Hour),
		WithClock(clock.Now),
	)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	idle, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.PlayRound(ctx, idle.SessionID, "rock"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	watched, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, cancel, err := svc.Subscribe(ctx, watched.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	clock.advance(30 * time.Minute)
	if n := svc.sweep(); n != 0 {
		t.Errorf("expected nothing evicted before the timeout, got %d", n)
	}

	clock.advance(2 * time.Hour)
	if n := svc.sweep(); n != 1 {
		t.Errorf("expected 1 session evicted, got %d", n)
	}
	if n := liveCount(svc); n != 1 {
		t.Errorf("expected the watched session to stay cached, got %d sessions", n)
	}

	got, err := svc.GetSession(ctx, idle.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Rounds != 1 || got.Scores.Player != 1 {
		t.Errorf("expected evicted session to be restored from storage, got %+v", got)
	}
}

func TestGameService_InvalidChoiceIsNotRecorded(t *testing.T) {
	repo := storage.NewMemoryStorage()
	svc, _ := newTestService(t, repo, game.Rock, game.Move(7))
	ctx := context.Background()

	session, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.PlayAutomatedRound(ctx, session.SessionID); !errors.Is(err, game.ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}

	// The exhibition loop keeps running through bad rounds.
	if _, err := svc.StartExhibition(ctx, session.SessionID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := svc.StopExhibition(ctx, session.SessionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetSession(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Rounds != 0 {
		t.Errorf("expected no rounds recorded, got %d", got.Rounds)
	}
}

func TestGameService_ResetRacingStartExhibition(t *testing.T) {
	svc, _ := newTestService(t, storage.NewMemoryStorage(), game.Paper, game.Rock)
	ctx := context.Background()

	session, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := svc.StartExhibition(ctx, session.SessionID, time.Millisecond); err != nil && !errors.Is(err, ErrExhibitionRunning) {
			t.Fatalf("unexpected error: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.StartExhibition(ctx, session.SessionID, time.Millisecond)
		}()

		reset, err := svc.ResetSession(ctx, session.SessionID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reset.Exhibition || reset.Rounds != 0 {
			t.Fatalf("expected reset to leave the exhibition off, got %+v", reset)
		}
		wg.Wait()
	}
}
