package profile

import "strings"

// Section is one named block of a structured profile.
type Section struct {
	Header string `json:"header"`
	Text   string `json:"text"`
}

// Data is the canonical structured representation of a profile: an ordered
// list of header/text sections. Order is display order and is preserved
// through augmentation.
type Data struct {
	Sections []Section `json:"sections"`
}

// Headers returns the section headers in display order.
func (d Data) Headers() []string {
	out := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = s.Header
	}
	return out
}

// HasHeader reports whether the profile contains a section with the given
// header, compared case-insensitively after trimming.
func (d Data) HasHeader(header string) bool {
	want := normalizeHeader(header)
	for _, s := range d.Sections {
		if normalizeHeader(s.Header) == want {
			return true
		}
	}
	return false
}

// DedupHeaders returns a copy of the profile with duplicate headers removed,
// keeping the first occurrence. The model is instructed to avoid duplicates
// but that is best-effort only, so augmentation results pass through here.
func (d Data) DedupHeaders() Data {
	seen := make(map[string]bool, len(d.Sections))
	out := Data{Sections: make([]Section, 0, len(d.Sections))}
	for _, s := range d.Sections {
		key := normalizeHeader(s.Header)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Sections = append(out.Sections, s)
	}
	return out
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
