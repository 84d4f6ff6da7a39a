package models

import "time"

// SessionState enumerates the conversation states of one user's flow.
type SessionState string

const (
	StateIdle              SessionState = "idle"
	StateSearching         SessionState = "searching"
	StateAwaitingSelection SessionState = "awaiting_selection"
	StateAwaitingThumbnail SessionState = "awaiting_thumbnail"
	StateRendering         SessionState = "rendering"
	StatePreviewing        SessionState = "previewing"
)

// ConversationSession tracks one user's progress through the
// search -> selection -> thumbnail -> render -> preview -> publish flow.
// At most one session per user is ever active, and it is only mutated by the
// state machine while holding that user's gate.
type ConversationSession struct {
	UserID int64        `json:"user_id"`
	State  SessionState `json:"state"`

	Kind  Kind   `json:"kind,omitempty"`
	Query string `json:"query,omitempty"`

	PendingCandidates []Candidate    `json:"pending_candidates,omitempty"`
	PendingRecord     *ContentRecord `json:"pending_record,omitempty"`
	ThumbnailOverride []byte         `json:"thumbnail_override,omitempty"`

	// Artifacts assembled during Rendering, kept for publish.
	Caption       string `json:"caption,omitempty"`
	ThumbnailJPEG []byte `json:"thumbnail_jpeg,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewSession returns an idle session for the user.
func NewSession(userID int64) *ConversationSession {
	now := time.Now()
	return &ConversationSession{
		UserID:         userID,
		State:          StateIdle,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Active reports whether the session is mid-flow.
func (s *ConversationSession) Active() bool {
	return s.State != StateIdle
}

// Expired reports whether the session has been inactive longer than bound.
func (s *ConversationSession) Expired(bound time.Duration) bool {
	return time.Since(s.LastActivityAt) > bound
}

// Touch records activity.
func (s *ConversationSession) Touch() {
	s.LastActivityAt = time.Now()
}

// Reset returns the session to idle and drops all transient flow data.
func (s *ConversationSession) Reset() {
	s.State = StateIdle
	s.Kind = ""
	s.Query = ""
	s.PendingCandidates = nil
	s.PendingRecord = nil
	s.ThumbnailOverride = nil
	s.Caption = ""
	s.ThumbnailJPEG = nil
	s.Touch()
}
