package profile

import (
	"encoding/json"
	"fmt"
	"strings"
)

const snippetLimit = 200

// MalformedError reports a model response that could not be decoded or that
// failed structural validation. It carries a snippet of the offending payload
// for diagnostics.
type MalformedError struct {
	Reason  string
	Snippet string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed profile response: %s (got: %s)", e.Reason, e.Snippet)
}

// Parse decodes raw model output into a Data value. Leading/trailing markdown
// code fences (with optional language tag) are stripped first. Every response
// is treated as untrusted input: the JSON must decode and the result must
// have a non-empty section list where each section carries a non-blank
// header and text.
func Parse(raw string) (Data, error) {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return Data{}, &MalformedError{Reason: "empty response", Snippet: snippet(raw)}
	}

	var d Data
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return Data{}, &MalformedError{
			Reason:  fmt.Sprintf("invalid JSON: %v", err),
			Snippet: snippet(cleaned),
		}
	}

	if err := validate(d); err != nil {
		return Data{}, &MalformedError{Reason: err.Error(), Snippet: snippet(cleaned)}
	}
	return d, nil
}

// validate enforces the structural contract on decoded data. Violations are
// aggregated into a single error rather than reported per section.
func validate(d Data) error {
	if len(d.Sections) == 0 {
		return fmt.Errorf("sections must be a non-empty array")
	}

	var bad []string
	for i, s := range d.Sections {
		if strings.TrimSpace(s.Header) == "" || strings.TrimSpace(s.Text) == "" {
			bad = append(bad, fmt.Sprintf("#%d", i))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("sections %s are missing header or text", strings.Join(bad, ", "))
	}
	return nil
}

// StripFences removes a single enclosing markdown code fence, if present.
// Models regularly wrap JSON and HTML output in ```json ... ``` blocks even
// when told not to.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop the optional language tag on the opening fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || isLanguageTag(first) {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLimit {
		return s[:snippetLimit] + "..."
	}
	return s
}
