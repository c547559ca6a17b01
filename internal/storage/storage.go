package storage

import (
	"context"

	"github.com/rps-arena/internal/models"
)

// SessionRepository defines operations on persisted sessions.
// Implemented by the in-memory, Cassandra, Redis and SQLite backends.
type SessionRepository interface {
	CreateSession(ctx context.Context, record *models.SessionRecord) error
	GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error)
	SaveSession(ctx context.Context, record *models.SessionRecord) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Errors
var (
	ErrSessionNotFound = &StorageError{Message: "session not found"}
	ErrSessionExists   = &StorageError{Message: "session already exists"}
)

// StorageError represents a storage error
type StorageError struct {
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}
