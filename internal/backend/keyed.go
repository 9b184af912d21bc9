package backend

import (
	"context"
	"net/http"
	"strings"
)

const (
	// DefaultOpenAIURL is the OpenAI chat completions endpoint.
	DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

	// DefaultGeminiURL is Gemini's OpenAI-compatible chat completions
	// endpoint.
	DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Keyed is an API-keyed OpenAI-compatible backend. It covers both paid
// backends (OpenAI directly, Gemini through its OpenAI-compatible surface)
// with a single client parameterized by endpoint, key, and model.
type Keyed struct {
	name         string
	model        string
	apiKey       string
	organization string
	project      string
	exec         *executor
}

// KeyedConfig carries the per-backend settings for a keyed client.
type KeyedConfig struct {
	Name         string // "openai" or "gemini"
	BaseURL      string
	APIKey       string
	Model        string
	Organization string // OpenAI-only, optional
	Project      string // OpenAI-only, optional
}

// NewKeyed creates an API-keyed backend client. The key is attached with a
// single bearer-header strategy; there is no anonymous fallback for paid
// endpoints.
func NewKeyed(cfg KeyedConfig, opts TransportOptions) *Keyed {
	return &Keyed{
		name:         cfg.Name,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		organization: cfg.Organization,
		project:      cfg.Project,
		exec:         newExecutor(strings.TrimRight(cfg.BaseURL, "/"), newHTTPClient(opts), opts.Timeout),
	}
}

func (k *Keyed) Name() string { return k.name }

// Configured reports whether an API key is present. The selection policy
// skips unconfigured keyed backends in auto mode.
func (k *Keyed) Configured() bool { return k.apiKey != "" }

func (k *Keyed) Complete(ctx context.Context, req Request) (string, error) {
	body := buildWireRequest(k.model, req, false)
	strategies := []Strategy{{
		Name:        "api key",
		AppliesAuth: true,
		Apply: func(h http.Header, _ *wireRequest) {
			h.Set("Authorization", "Bearer "+k.apiKey)
			if k.organization != "" {
				h.Set("OpenAI-Organization", k.organization)
			}
			if k.project != "" {
				h.Set("OpenAI-Project", k.project)
			}
		},
	}}
	return k.exec.do(ctx, body, strategies)
}
