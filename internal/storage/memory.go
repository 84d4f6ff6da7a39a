package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xaenox/postbot/internal/models"
)

// MemoryStorage is the in-process implementation used in tests and when no
// database is configured.
type MemoryStorage struct {
	mu        sync.RWMutex
	users     map[int64]*models.UserSettings
	templates map[int64][]*models.TemplateSpec // newest version last per name
	daily     map[int64]map[string]int         // userID -> day -> count
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:     make(map[int64]*models.UserSettings),
		templates: make(map[int64][]*models.TemplateSpec),
		daily:     make(map[int64]map[string]int),
	}
}

func (s *MemoryStorage) GetUserSettings(ctx context.Context, userID int64) (*models.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	now := time.Now()
	return &models.UserSettings{UserID: userID, CreatedAt: now, LastSeenAt: now}, nil
}

func (s *MemoryStorage) UpdateUserSettings(ctx context.Context, settings *models.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *settings
	cp.LastSeenAt = time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.LastSeenAt
	}
	s.users[settings.UserID] = &cp
	return nil
}

func (s *MemoryStorage) SaveTemplate(ctx context.Context, tpl *models.TemplateSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tpl
	cp.VersionID = uuid.New().String()
	cp.Active = true
	cp.CreatedAt = time.Now()
	tpl.VersionID = cp.VersionID

	// Saving a template activates it; everything else goes inactive.
	for _, existing := range s.templates[tpl.UserID] {
		existing.Active = false
	}
	s.templates[tpl.UserID] = append(s.templates[tpl.UserID], &cp)
	return nil
}

func (s *MemoryStorage) GetTemplate(ctx context.Context, userID int64, name string) (*models.TemplateSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tpl := s.latestByName(userID, name); tpl != nil {
		cp := *tpl
		return &cp, nil
	}
	return nil, fmt.Errorf("template %q not found", name)
}

func (s *MemoryStorage) GetActiveTemplate(ctx context.Context, userID int64, kind models.Kind) (*models.TemplateSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.templates[userID]) - 1; i >= 0; i-- {
		tpl := s.templates[userID][i]
		if tpl.Active && tpl.AppliesTo(kind) {
			cp := *tpl
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) ListTemplates(ctx context.Context, userID int64) ([]*models.TemplateSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]*models.TemplateSpec)
	var order []string
	for _, tpl := range s.templates[userID] {
		if _, seen := latest[tpl.Name]; !seen {
			order = append(order, tpl.Name)
		}
		latest[tpl.Name] = tpl
	}

	out := make([]*models.TemplateSpec, 0, len(order))
	for _, name := range order {
		cp := *latest[name]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStorage) SetActiveTemplate(ctx context.Context, userID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.latestByName(userID, name)
	if target == nil {
		return fmt.Errorf("template %q not found", name)
	}
	for _, tpl := range s.templates[userID] {
		tpl.Active = false
	}
	target.Active = true
	return nil
}

func (s *MemoryStorage) DeleteTemplate(ctx context.Context, userID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*models.TemplateSpec
	for _, tpl := range s.templates[userID] {
		if tpl.Name != name {
			kept = append(kept, tpl)
		}
	}
	s.templates[userID] = kept
	return nil
}

func (s *MemoryStorage) IncrementPostCount(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := time.Now().Format("2006-01-02")
	if s.daily[userID] == nil {
		s.daily[userID] = make(map[string]int)
	}
	s.daily[userID][day]++
	return nil
}

func (s *MemoryStorage) PostsToday(ctx context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := time.Now().Format("2006-01-02")
	return s.daily[userID][day], nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func (s *MemoryStorage) latestByName(userID int64, name string) *models.TemplateSpec {
	for i := len(s.templates[userID]) - 1; i >= 0; i-- {
		if s.templates[userID][i].Name == name {
			return s.templates[userID][i]
		}
	}
	return nil
}
