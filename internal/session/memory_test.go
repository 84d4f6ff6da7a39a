package session

import (
	"context"
	"testing"

	"github.com/xaenox/postbot/internal/models"
)

func TestMemoryStore_LoadMissingReturnsNilNil(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	sess, err := store.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sess != nil {
		t.Errorf("Load() = %+v, want nil for unknown user", sess)
	}
}

func TestMemoryStore_SaveThenLoad(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	sess := models.NewSession(7)
	sess.State = models.StateAwaitingSelection
	sess.Kind = models.KindAnime
	sess.Query = "attack on titan"

	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, 7)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatal("Load() = nil, want saved session")
	}
	if got.State != models.StateAwaitingSelection || got.Query != "attack on titan" {
		t.Errorf("Load() = %+v, want saved state and query", got)
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	sess := models.NewSession(7)
	sess.Query = "original"
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	first, _ := store.Load(ctx, 7)
	first.Query = "mutated"

	second, _ := store.Load(ctx, 7)
	if second.Query != "original" {
		t.Errorf("Query = %q, want %q: caller mutation leaked into the store", second.Query, "original")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Save(ctx, models.NewSession(7)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, 7); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := store.Load(ctx, 7)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() after Delete = %+v, want nil", got)
	}
}
