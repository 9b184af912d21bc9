// Package identity derives stable public identifiers for profile pages. The
// identity provider itself is an external collaborator; this package only
// turns whatever it supplies (an opaque auth id plus optional name fields)
// into a display name and a URL-safe slug.
package identity

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const suffixLen = 6

// Source is the raw material the identity provider hands us. Every field
// except AuthID may be empty.
type Source struct {
	AuthID    string
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// Identity is the derived public identity for a profile page.
type Identity struct {
	DisplayName string
	Slug        string
	Email       string
	AuthID      string
}

// Derive builds the display name and slug from the best available source
// field. The slug carries a stable suffix derived from the auth id, so the
// same user always lands on the same URL regardless of later name changes.
func Derive(src Source) Identity {
	name := strings.TrimSpace(strings.TrimSpace(src.FirstName) + " " + strings.TrimSpace(src.LastName))

	display := firstNonEmpty(
		name,
		strings.TrimSpace(src.Username),
		emailLocalPart(src.Email),
		"Professional Profile",
	)

	base := firstNonEmpty(
		strings.TrimSpace(src.Username),
		name,
		emailLocalPart(src.Email),
		src.AuthID,
	)

	slug := Slugify(base)
	suffix := stableSuffix(src.AuthID)
	if slug == "" {
		slug = "user-" + suffix
	} else {
		slug = slug + "-" + suffix
	}

	return Identity{
		DisplayName: display,
		Slug:        slug,
		Email:       strings.TrimSpace(src.Email),
		AuthID:      src.AuthID,
	}
}

// Slugify lowercases, strips diacritics, and collapses every non-alphanumeric
// run into a single hyphen.
func Slugify(s string) string {
	s = removeDiacritics(s)
	s = strings.ToLower(s)

	var sb strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			sb.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			sb.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

// removeDiacritics decomposes to NFD and drops combining marks, so "José"
// slugifies to "jose" rather than losing the letter entirely.
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stableSuffix returns the last alphanumeric characters of the auth id,
// lowered, so regenerated slugs stay stable per user. A missing auth id gets
// a random suffix instead.
func stableSuffix(authID string) string {
	var sb strings.Builder
	for _, r := range authID {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	cleaned := sb.String()
	if len(cleaned) >= suffixLen {
		return cleaned[len(cleaned)-suffixLen:]
	}
	if cleaned != "" {
		return cleaned
	}
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return random[len(random)-suffixLen:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func emailLocalPart(email string) string {
	email = strings.TrimSpace(email)
	if idx := strings.IndexByte(email, '@'); idx > 0 {
		return email[:idx]
	}
	return ""
}
