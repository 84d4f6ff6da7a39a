package storage

import (
	"context"
	"fmt"
)

// QuotaPolicy is the single premium-policy check the state machine consults
// when a new query arrives: free users get a daily post allowance, premium
// users a much larger one.
type QuotaPolicy struct {
	store        Storage
	freeLimit    int
	premiumLimit int
}

func NewQuotaPolicy(store Storage, freeLimit, premiumLimit int) *QuotaPolicy {
	return &QuotaPolicy{store: store, freeLimit: freeLimit, premiumLimit: premiumLimit}
}

// Check reports whether the user may start another post today.
func (q *QuotaPolicy) Check(ctx context.Context, userID int64) (bool, error) {
	settings, err := q.store.GetUserSettings(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("quota check: %w", err)
	}
	used, err := q.store.PostsToday(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("quota check: %w", err)
	}

	limit := q.freeLimit
	if settings.IsPremium {
		limit = q.premiumLimit
	}
	return used < limit, nil
}
