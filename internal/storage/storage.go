package storage

import (
	"context"

	"github.com/xaenox/postbot/internal/models"
)

// Storage persists users, caption templates and daily usage counters.
type Storage interface {
	GetUserSettings(ctx context.Context, userID int64) (*models.UserSettings, error)
	UpdateUserSettings(ctx context.Context, settings *models.UserSettings) error

	// SaveTemplate stores a new immutable template version (a fresh
	// VersionID is assigned) and activates it.
	SaveTemplate(ctx context.Context, tpl *models.TemplateSpec) error
	GetTemplate(ctx context.Context, userID int64, name string) (*models.TemplateSpec, error)
	// GetActiveTemplate returns the user's active template applicable to
	// kind, or (nil, nil) when the built-in default should be used.
	GetActiveTemplate(ctx context.Context, userID int64, kind models.Kind) (*models.TemplateSpec, error)
	ListTemplates(ctx context.Context, userID int64) ([]*models.TemplateSpec, error)
	SetActiveTemplate(ctx context.Context, userID int64, name string) error
	DeleteTemplate(ctx context.Context, userID int64, name string) error

	IncrementPostCount(ctx context.Context, userID int64) error
	PostsToday(ctx context.Context, userID int64) (int, error)

	Close() error
}
