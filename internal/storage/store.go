// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/receiptsplit/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Store defines the interface for split session storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer. Stores hold inputs only; split results
// are always recomputed.
type Store interface {
	// CreateSession persists a new session.
	// ID, CreatedAt and Title are filled in by the store when empty.
	CreateSession(ctx context.Context, s *models.Session) error

	// GetSession retrieves a session by its ID.
	// Returns ErrSessionNotFound or ErrSessionExpired when it cannot be used.
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// UpdateSession replaces the title, step, receipt, participants,
	// assignments and expiry of an existing session.
	UpdateSession(ctx context.Context, s *models.Session) error

	// DeleteSession removes a session and everything attached to it.
	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions removes sessions that expired at or before now
	// and reports how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}
