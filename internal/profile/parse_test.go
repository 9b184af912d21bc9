package profile

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	raw := `{"sections":[{"header":"Experience","text":"Ten years of Go."},{"header":"Education","text":"CS degree."}]}`

	d, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(d.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(d.Sections))
	}
	if d.Sections[0].Header != "Experience" {
		t.Errorf("Sections[0].Header = %q, want %q", d.Sections[0].Header, "Experience")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	d := Data{Sections: []Section{
		{Header: "About", Text: "Backend engineer."},
		{Header: "Skills", Text: "Go, SQL."},
	}}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Parse(string(b))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(got, d) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, d)
	}
}

func TestParse_FencedBlock(t *testing.T) {
	bare := `{"sections":[{"header":"About","text":"Hi."}]}`
	fenced := "```json\n" + bare + "\n```"

	fromBare, err := Parse(bare)
	if err != nil {
		t.Fatalf("Parse bare: %v", err)
	}
	fromFenced, err := Parse(fenced)
	if err != nil {
		t.Fatalf("Parse fenced: %v", err)
	}
	if !reflect.DeepEqual(fromBare, fromFenced) {
		t.Errorf("fenced parse = %+v, want %+v", fromFenced, fromBare)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "not json"},
		{"missing sections", "{}"},
		{"empty sections", `{"sections": []}`},
		{"blank header", `{"sections": [{"header": " ", "text": "x"}]}`},
		{"blank text", `{"sections": [{"header": "About", "text": ""}]}`},
		{"sections not array", `{"sections": "nope"}`},
		{"empty input", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Fatalf("error type = %T, want *MalformedError", err)
			}
		})
	}
}

func TestParse_SnippetTruncated(t *testing.T) {
	long := "not json " + strings.Repeat("x", 500)
	_, err := Parse(long)
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("error type = %T, want *MalformedError", err)
	}
	if len(malformed.Snippet) > snippetLimit+3 {
		t.Errorf("snippet length = %d, want <= %d", len(malformed.Snippet), snippetLimit+3)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"html tag", "```html\n<div>x</div>\n```", "<div>x</div>"},
		{"no tag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{}\n```  ", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDedupHeaders(t *testing.T) {
	d := Data{Sections: []Section{
		{Header: "Skills", Text: "Go."},
		{Header: "skills ", Text: "Duplicate, dropped."},
		{Header: "Projects", Text: "perfil."},
	}}

	got := d.DedupHeaders()
	if len(got.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(got.Sections))
	}
	if got.Sections[0].Text != "Go." {
		t.Errorf("first occurrence not kept: %+v", got.Sections[0])
	}
	if got.Sections[1].Header != "Projects" {
		t.Errorf("order not preserved: %+v", got.Sections)
	}
}

func TestHasHeader(t *testing.T) {
	d := Data{Sections: []Section{{Header: "Work Experience", Text: "x"}}}
	if !d.HasHeader(" work experience ") {
		t.Error("HasHeader should match case-insensitively after trim")
	}
	if d.HasHeader("Education") {
		t.Error("HasHeader matched a missing header")
	}
}
