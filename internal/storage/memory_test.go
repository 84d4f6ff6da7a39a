package storage

import (
	"context"
	"testing"

	"github.com/xaenox/postbot/internal/models"
)

func TestGetUserSettings_UnknownUserGetsDefaults(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()

	settings, err := s.GetUserSettings(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetUserSettings() error = %v", err)
	}
	if settings.UserID != 1 {
		t.Errorf("UserID = %d, want 1", settings.UserID)
	}
	if settings.Watermark != "" || settings.ChannelID != 0 || settings.IsPremium {
		t.Errorf("defaults = %+v, want zero values", settings)
	}
}

func TestUpdateUserSettings_RoundTrip(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	ctx := context.Background()

	err := s.UpdateUserSettings(ctx, &models.UserSettings{
		UserID:    1,
		Watermark: "@mychannel",
		ChannelID: -100123,
	})
	if err != nil {
		t.Fatalf("UpdateUserSettings() error = %v", err)
	}

	settings, err := s.GetUserSettings(ctx, 1)
	if err != nil {
		t.Fatalf("GetUserSettings() error = %v", err)
	}
	if settings.Watermark != "@mychannel" || settings.ChannelID != -100123 {
		t.Errorf("settings = %+v, want saved watermark and channel", settings)
	}
}

func TestSaveTemplate_ActivatesAndVersions(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	ctx := context.Background()

	first := &models.TemplateSpec{UserID: 1, Name: "minimal", Body: "{title}"}
	if err := s.SaveTemplate(ctx, first); err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}
	if first.VersionID == "" {
		t.Error("SaveTemplate() assigned no version id")
	}

	second := &models.TemplateSpec{UserID: 1, Name: "verbose", Body: "{title} {rating}"}
	if err := s.SaveTemplate(ctx, second); err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}
	if second.VersionID == first.VersionID {
		t.Error("versions not unique across saves")
	}

	// The most recent save is the active one.
	active, err := s.GetActiveTemplate(ctx, 1, models.KindMovie)
	if err != nil {
		t.Fatalf("GetActiveTemplate() error = %v", err)
	}
	if active == nil || active.Name != "verbose" {
		t.Errorf("active = %+v, want verbose", active)
	}
}

func TestSaveTemplate_NewVersionOfSameName(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	ctx := context.Background()

	s.SaveTemplate(ctx, &models.TemplateSpec{UserID: 1, Name: "mine", Body: "v1 {title}"})
	s.SaveTemplate(ctx, &models.TemplateSpec{UserID: 1, Name: "mine", Body: "v2 {title}"})

	tpl, err := s.GetTemplate(ctx, 1, "mine")
	if err != nil {
		t.Fatalf("GetTemplate() error = %v", err)
	}
	if tpl.Body != "v2 {title}" {
		t.Errorf("Body = %q, want latest version", tpl.Body)
	}

	list, err := s.ListTemplates(ctx, 1)
	if err != nil {
		t.Fatalf("ListTemplates() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len(list) = %d, want 1: versions of one name collapse", len(list))
	}
}

func TestGetActiveTemplate_RespectsKindScope(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	ctx := context.Background()

	s.SaveTemplate(ctx, &models.TemplateSpec{
		UserID: 1, Name: "anime-only", Body: "{title}",
		Kinds: []models.Kind{models.KindAnime},
	})

	active, err := s.GetActiveTemplate(ctx, 1, models.KindMovie)
	if err != nil {
		t.Fatalf("GetActiveTemplate() error = %v", err)
	}
	if active != nil {
		t.Errorf("active for movie = %+v, want nil: template is anime-scoped", active)
	}

	active, err = s.GetActiveTemplate(ctx, 1, models.KindAnime)
	if err != nil {
		t.Fatalf("GetActiveTemplate() error = %v", err)
	}
	if active == nil {
		t.Error("active for anime = nil, want anime-only template")
	}
}

func TestSetActiveTemplate(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	ctx := context.Background()

	s.SaveTemplate(ctx, &models.TemplateSpec{UserID: 1, Name: "a", Body: "{title}"})
	s.SaveTemplate(ctx, &models.TemplateSpec{UserID: 1, Name: "b", Body: "{title}"})

	if err := s.SetActiveTemplate(ctx, 1, "a"); err != nil {
		t.Fatalf("SetActiveTemplate() error = %v", err)
	}
	active, _ := s.GetActiveTemplate(ctx, 1, models.KindMovie)
	if active == nil || active.Name != "a" {
		t.Errorf("active = %+v, want a", active)
	}

	if err := s.SetActiveTemplate(ctx, 1, "missing"); err == nil {
		t.Error("SetActiveTemplate() with unknown name: error = nil, want error")
	}
}

func TestDeleteTemplate(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	ctx := context.Background()

	s.SaveTemplate(ctx, &models.TemplateSpec{UserID: 1, Name: "gone", Body: "{title}"})
	if err := s.DeleteTemplate(ctx, 1, "gone"); err != nil {
		t.Fatalf("DeleteTemplate() error = %v", err)
	}
	if _, err := s.GetTemplate(ctx, 1, "gone"); err == nil {
		t.Error("GetTemplate() after delete: error = nil, want not-found")
	}
}

func TestPostCounting(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	ctx := context.Background()

	n, err := s.PostsToday(ctx, 1)
	if err != nil {
		t.Fatalf("PostsToday() error = %v", err)
	}
	if n != 0 {
		t.Errorf("PostsToday() = %d, want 0", n)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementPostCount(ctx, 1); err != nil {
			t.Fatalf("IncrementPostCount() error = %v", err)
		}
	}
	if n, _ = s.PostsToday(ctx, 1); n != 3 {
		t.Errorf("PostsToday() = %d, want 3", n)
	}

	// Counts are per user.
	if n, _ = s.PostsToday(ctx, 2); n != 0 {
		t.Errorf("PostsToday(other user) = %d, want 0", n)
	}
}

func TestQuotaPolicy(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	ctx := context.Background()
	policy := NewQuotaPolicy(s, 2, 10)

	for i := 0; i < 2; i++ {
		allowed, err := policy.Check(ctx, 1)
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if !allowed {
			t.Fatalf("Check() after %d posts = false, want true", i)
		}
		s.IncrementPostCount(ctx, 1)
	}

	allowed, err := policy.Check(ctx, 1)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if allowed {
		t.Error("Check() at free limit = true, want false")
	}

	// Premium users get the higher allowance.
	s.UpdateUserSettings(ctx, &models.UserSettings{UserID: 1, IsPremium: true})
	allowed, err = policy.Check(ctx, 1)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !allowed {
		t.Error("Check() for premium under limit = false, want true")
	}
}
