package storage

import (
	"context"
	"sync"

	"github.com/rps-arena/internal/game"
	"github.com/rps-arena/internal/models"
)

// MemoryStorage provides in-memory storage for sessions
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]*models.SessionRecord
}

// NewMemoryStorage creates a new in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*models.SessionRecord),
	}
}

// CreateSession stores a new session
func (s *MemoryStorage) CreateSession(ctx context.Context, record *models.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[record.SessionID]; exists {
		return ErrSessionExists
	}

	s.sessions[record.SessionID] = clone(record)
	return nil
}

// GetSession retrieves a session by ID
func (s *MemoryStorage) GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return clone(record), nil
}

// SaveSession overwrites an existing session
func (s *MemoryStorage) SaveSession(ctx context.Context, record *models.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[record.SessionID]; !exists {
		return ErrSessionNotFound
	}

	s.sessions[record.SessionID] = clone(record)
	return nil
}

// DeleteSession removes a session
func (s *MemoryStorage) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return ErrSessionNotFound
	}

	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of stored sessions
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// clone copies a record so callers never share the stored history slice
func clone(record *models.SessionRecord) *models.SessionRecord {
	c := *record
	c.History = append([]game.Round(nil), record.History...)
	return &c
}
