// Package session persists per-user conversation sessions behind a pluggable
// store so the state machine stays store-agnostic.
package session

import (
	"context"

	"github.com/xaenox/postbot/internal/models"
)

// Store loads and saves one user's conversation session. Load returns
// (nil, nil) when the user has no stored session.
type Store interface {
	Load(ctx context.Context, userID int64) (*models.ConversationSession, error)
	Save(ctx context.Context, s *models.ConversationSession) error
	Delete(ctx context.Context, userID int64) error
	Close() error
}
