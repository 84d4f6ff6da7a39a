package session

import (
	"context"
	"sync"

	"github.com/xaenox/postbot/internal/models"
)

// MemoryStore keeps sessions in process memory. It is the fallback when no
// Redis URL is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*models.ConversationSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*models.ConversationSession)}
}

func (s *MemoryStore) Load(ctx context.Context, userID int64) (*models.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *models.ConversationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.sessions[sess.UserID] = &cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
