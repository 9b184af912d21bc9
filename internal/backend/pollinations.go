package backend

import (
	"context"
	"strings"
)

const (
	// DefaultPollinationsURL is the OpenAI-compatible endpoint of the free
	// text generation service.
	DefaultPollinationsURL = "https://text.pollinations.ai/openai"

	// DefaultPollinationsModel is the best general-purpose model the free
	// service routes to.
	DefaultPollinationsModel = "openai"
)

// Pollinations is the free, token-optional text backend. A credential token
// improves rate limits when present but the service accepts anonymous
// requests, so this backend can never be unavailable for lack of
// configuration — only for runtime failures.
type Pollinations struct {
	model string
	exec  *executor
}

// NewPollinations creates the free backend client. An empty baseURL or model
// falls back to the defaults.
func NewPollinations(baseURL, model string, opts TransportOptions) *Pollinations {
	if baseURL == "" {
		baseURL = DefaultPollinationsURL
	}
	if model == "" {
		model = DefaultPollinationsModel
	}
	return &Pollinations{
		model: model,
		exec:  newExecutor(strings.TrimRight(baseURL, "/"), newHTTPClient(opts), opts.Timeout),
	}
}

func (p *Pollinations) Name() string { return "pollinations" }

// Complete runs the request through the full authentication fallback chain:
// bearer header, token in body, then anonymous.
func (p *Pollinations) Complete(ctx context.Context, req Request) (string, error) {
	body := buildWireRequest(p.model, req, true)
	return p.exec.do(ctx, body, tokenStrategies(req.Token))
}
