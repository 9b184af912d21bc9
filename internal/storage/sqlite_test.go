package storage

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestSaveAndGetProfile(t *testing.T) {
	s := openTestStore(t)

	p := Profile{
		ID:          "p1",
		AuthUserID:  "auth-1",
		Slug:        "jane-doe-abc123",
		DisplayName: "Jane Doe",
		Username:    "jdoe",
		Email:       "jane@example.com",
		PDFText:     "extracted text",
		ProfileJSON: `{"sections":[{"header":"About","text":"hi"}]}`,
	}
	if err := s.SaveProfile(p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	got, err := s.GetProfileByAuthID("auth-1")
	if err != nil {
		t.Fatalf("GetProfileByAuthID: %v", err)
	}
	if got.Slug != p.Slug || got.ProfileJSON != p.ProfileJSON || got.DisplayName != p.DisplayName {
		t.Errorf("round-trip mismatch: got %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not populated")
	}

	bySlug, err := s.GetProfileBySlug("jane-doe-abc123")
	if err != nil {
		t.Fatalf("GetProfileBySlug: %v", err)
	}
	if bySlug.ID != "p1" {
		t.Errorf("GetProfileBySlug returned id %q, want p1", bySlug.ID)
	}
}

func TestSaveProfileUpsertKeepsIdentity(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveProfile(Profile{ID: "p1", AuthUserID: "auth-1", Slug: "jane-abc123", PDFText: "v1"}); err != nil {
		t.Fatalf("first SaveProfile: %v", err)
	}
	// Re-upload for the same user: id and slug in the row must survive.
	if err := s.SaveProfile(Profile{ID: "p2", AuthUserID: "auth-1", Slug: "other-slug", PDFText: "v2"}); err != nil {
		t.Fatalf("second SaveProfile: %v", err)
	}

	got, err := s.GetProfileByAuthID("auth-1")
	if err != nil {
		t.Fatalf("GetProfileByAuthID: %v", err)
	}
	if got.ID != "p1" || got.Slug != "jane-abc123" {
		t.Errorf("upsert replaced identity: id=%q slug=%q", got.ID, got.Slug)
	}
	if got.PDFText != "v2" {
		t.Errorf("upsert did not refresh content: pdf_text=%q", got.PDFText)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetProfileByAuthID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProfileByAuthID error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetProfileBySlug("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProfileBySlug error = %v, want ErrNotFound", err)
	}
}

func TestUpdateProfileColumns(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveProfile(Profile{ID: "p1", AuthUserID: "auth-1", Slug: "s-1"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	if err := s.UpdateProfileJSON("auth-1", `{"sections":[]}`); err != nil {
		t.Fatalf("UpdateProfileJSON: %v", err)
	}
	if err := s.UpdateProfileHTML("auth-1", `<div class="p-4">hi</div>`); err != nil {
		t.Fatalf("UpdateProfileHTML: %v", err)
	}

	got, err := s.GetProfileByAuthID("auth-1")
	if err != nil {
		t.Fatalf("GetProfileByAuthID: %v", err)
	}
	if got.ProfileJSON != `{"sections":[]}` {
		t.Errorf("ProfileJSON = %q", got.ProfileJSON)
	}
	if got.ProfileHTML != `<div class="p-4">hi</div>` {
		t.Errorf("ProfileHTML = %q", got.ProfileHTML)
	}

	if err := s.UpdateProfileJSON("missing", "{}"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateProfileJSON for missing user = %v, want ErrNotFound", err)
	}
}

func TestListProfiles(t *testing.T) {
	s := openTestStore(t)

	for _, p := range []Profile{
		{ID: "p1", AuthUserID: "a1", Slug: "s1"},
		{ID: "p2", AuthUserID: "a2", Slug: "s2"},
		{ID: "p3", AuthUserID: "a3", Slug: "s3"},
	} {
		if err := s.SaveProfile(p); err != nil {
			t.Fatalf("SaveProfile(%s): %v", p.ID, err)
		}
	}

	profiles, err := s.ListProfiles(2)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("ListProfiles returned %d rows, want 2", len(profiles))
	}
}
