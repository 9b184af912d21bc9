// Package pipeline exposes the three core operations on a profile:
// Reformulate (structure raw extracted text), Augment (merge owner
// instructions into an existing profile), and Render (generate a styled
// markup fragment). It owns backend selection and response validation; it
// never touches storage.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/perfil/perfil/internal/backend"
	"github.com/perfil/perfil/internal/profile"
	"github.com/perfil/perfil/internal/prompt"
)

// KeyedBackend is a paid backend that may be unconfigured (missing API key).
type KeyedBackend interface {
	backend.Completer
	Configured() bool
}

// Pipeline wires the free backend, the keyed render backends, and the
// default render preference together. All fields are set at construction and
// immutable afterwards; a Pipeline is safe for concurrent use.
type Pipeline struct {
	free          backend.Completer
	keyed         []KeyedBackend
	defaultPrefer string
}

// New creates a Pipeline. free is the guaranteed-fallback text backend;
// keyed lists the paid render backends in default priority order;
// defaultPrefer names the keyed backend to try first when the caller does
// not choose one ("auto" or "" means credential-driven ordering).
func New(free backend.Completer, keyed []KeyedBackend, defaultPrefer string) *Pipeline {
	return &Pipeline{free: free, keyed: keyed, defaultPrefer: defaultPrefer}
}

// RenderOptions controls a single Render call.
type RenderOptions struct {
	Username         string
	Instructions     string
	PreferredBackend string // "openai", "gemini", or "" for the default
	PreviousMarkup   string
}

// Reformulate structures raw extracted text (plus an optional secondary
// source digest) into a validated profile. token is the optional credential
// for the free backend.
func (p *Pipeline) Reformulate(ctx context.Context, extracted, secondary, token string) (profile.Data, error) {
	pr := prompt.Reformulate(extracted, secondary)
	raw, err := p.free.Complete(ctx, backend.Request{
		System:          pr.System,
		User:            pr.User,
		ReasoningEffort: "medium",
		ForceJSON:       true,
		Token:           token,
	})
	if err != nil {
		return profile.Data{}, fmt.Errorf("reformulate: %w", err)
	}

	data, err := profile.Parse(raw)
	if err != nil {
		return profile.Data{}, fmt.Errorf("reformulate: %w", err)
	}
	slog.Debug("reformulate complete", "sections", len(data.Sections))
	return data, nil
}

// Augment merges free-text instructions into an existing profile. The
// existing sections are an immutable baseline: the result always contains
// every baseline header, and duplicate headers introduced by the model are
// dropped (first occurrence wins).
func (p *Pipeline) Augment(ctx context.Context, current profile.Data, instructions, token string) (profile.Data, error) {
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return profile.Data{}, fmt.Errorf("augment: marshaling current profile: %w", err)
	}

	pr := prompt.Augment(string(currentJSON), instructions)
	raw, err := p.free.Complete(ctx, backend.Request{
		System:          pr.System,
		User:            pr.User,
		ReasoningEffort: "medium",
		ForceJSON:       true,
		Token:           token,
	})
	if err != nil {
		return profile.Data{}, fmt.Errorf("augment: %w", err)
	}

	merged, err := profile.Parse(raw)
	if err != nil {
		return profile.Data{}, fmt.Errorf("augment: %w", err)
	}

	merged = merged.DedupHeaders()
	merged = restoreBaseline(current, merged)
	slog.Debug("augment complete",
		"sections_before", len(current.Sections),
		"sections_after", len(merged.Sections),
	)
	return merged, nil
}

// restoreBaseline reinserts any baseline section the model dropped, at the
// position its neighbors suggest. The prompt forbids dropping sections but
// model compliance is best-effort, so the guarantee is enforced here.
func restoreBaseline(baseline, merged profile.Data) profile.Data {
	out := merged
	insertAt := 0
	for _, s := range baseline.Sections {
		if idx := indexOfHeader(out, s.Header); idx >= 0 {
			insertAt = idx + 1
			continue
		}
		if insertAt > len(out.Sections) {
			insertAt = len(out.Sections)
		}
		out.Sections = slices.Insert(out.Sections, insertAt, s)
		insertAt++
	}
	return out
}

func indexOfHeader(d profile.Data, header string) int {
	for i := range d.Sections {
		if d.Sections[i].Header == header {
			return i
		}
	}
	// Fall back to normalized comparison for cosmetic header drift.
	for i := range d.Sections {
		if equalHeader(d.Sections[i].Header, header) {
			return i
		}
	}
	return -1
}

func equalHeader(a, b string) bool {
	da := profile.Data{Sections: []profile.Section{{Header: a, Text: "x"}}}
	return da.HasHeader(b)
}

// Render generates a styled markup fragment for the profile, walking the
// selection policy's candidate list. Keyed backend failures are logged and
// absorbed; only a failure of the guaranteed fallback propagates. The output
// is fence-stripped and sanitized but never JSON-validated.
func (p *Pipeline) Render(ctx context.Context, data profile.Data, opts RenderOptions, token string) (string, error) {
	profileJSON, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("render: marshaling profile: %w", err)
	}

	pr := prompt.Render(prompt.RenderInput{
		ProfileJSON:    string(profileJSON),
		Username:       opts.Username,
		Instructions:   opts.Instructions,
		PreviousMarkup: opts.PreviousMarkup,
	})
	req := backend.Request{
		System: pr.System,
		User:   pr.User,
		Token:  token,
	}

	for _, cand := range p.renderCandidates(opts.PreferredBackend) {
		out, err := cand.Complete(ctx, req)
		if err != nil {
			slog.Warn("render backend failed, trying next candidate",
				"backend", cand.Name(), "error", err)
			continue
		}
		slog.Debug("render complete", "backend", cand.Name())
		return SanitizeMarkup(profile.StripFences(out)), nil
	}

	out, err := p.free.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("render: every backend failed, including fallback %s: %w", p.free.Name(), err)
	}
	slog.Debug("render complete", "backend", p.free.Name())
	return SanitizeMarkup(profile.StripFences(out)), nil
}
