package identity

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"John Doe", "john-doe"},
		{"José García", "jose-garcia"},
		{"  spaced   out  ", "spaced-out"},
		{"Already-Hyphenated", "already-hyphenated"},
		{"trailing!!!", "trailing"},
		{"___", ""},
		{"Łukasz Müller", "ukasz-muller"},
		{"année2024", "annee2024"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDeriveStableSuffix(t *testing.T) {
	src := Source{AuthID: "user_2abcDEF123XYZ", Username: "jdoe"}

	first := Derive(src)
	second := Derive(src)
	if first.Slug != second.Slug {
		t.Fatalf("slug not stable: %q vs %q", first.Slug, second.Slug)
	}
	if !strings.HasPrefix(first.Slug, "jdoe-") {
		t.Fatalf("slug = %q, want jdoe- prefix", first.Slug)
	}
	if !strings.HasSuffix(first.Slug, "123xyz") {
		t.Fatalf("slug = %q, want suffix 123xyz", first.Slug)
	}
}

func TestDeriveDisplayNameFallbacks(t *testing.T) {
	cases := []struct {
		name string
		src  Source
		want string
	}{
		{
			"full name preferred",
			Source{AuthID: "a1", FirstName: "Ada", LastName: "Lovelace", Username: "ada", Email: "ada@example.com"},
			"Ada Lovelace",
		},
		{
			"username when no name",
			Source{AuthID: "a1", Username: "ada", Email: "ada@example.com"},
			"ada",
		},
		{
			"email local part when nothing else",
			Source{AuthID: "a1", Email: "ada.lovelace@example.com"},
			"ada.lovelace",
		},
		{
			"generic label as last resort",
			Source{AuthID: "a1"},
			"Professional Profile",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Derive(tc.src).DisplayName; got != tc.want {
				t.Errorf("DisplayName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeriveSlugFallsBackToEmail(t *testing.T) {
	id := Derive(Source{AuthID: "abc123", Email: "maria.lopez@example.com"})
	if !strings.HasPrefix(id.Slug, "maria-lopez-") {
		t.Fatalf("slug = %q, want maria-lopez- prefix", id.Slug)
	}
}

func TestDeriveEmptyAuthIDStillProducesSlug(t *testing.T) {
	id := Derive(Source{Username: "ghost"})
	if !strings.HasPrefix(id.Slug, "ghost-") {
		t.Fatalf("slug = %q, want ghost- prefix", id.Slug)
	}
	parts := strings.Split(id.Slug, "-")
	if suffix := parts[len(parts)-1]; len(suffix) != suffixLen {
		t.Fatalf("suffix %q, want length %d", suffix, suffixLen)
	}
}
