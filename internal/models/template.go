package models

import "time"

// TemplateSpec is a user-owned caption template. A saved template is
// immutable: editing one produces a new VersionID and the active flag moves
// to the new version.
type TemplateSpec struct {
	VersionID string    `json:"version_id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Kinds     []Kind    `json:"kinds,omitempty"` // empty = applies to every kind
	Body      string    `json:"body"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// AppliesTo reports whether the template can render records of kind k.
func (t *TemplateSpec) AppliesTo(k Kind) bool {
	if len(t.Kinds) == 0 {
		return true
	}
	for _, tk := range t.Kinds {
		if tk == k {
			return true
		}
	}
	return false
}

// UserSettings holds per-user preferences consulted when assembling a post.
type UserSettings struct {
	UserID     int64     `json:"user_id"`
	Watermark  string    `json:"watermark"`
	ChannelID  int64     `json:"channel_id"`
	IsPremium  bool      `json:"is_premium"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
