package backend

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// Message is one chat message in the OpenAI-compatible wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call. It is constructed fresh per call
// and never persisted; the executor deep-clones the derived wire body before
// every attempt so credential injection cannot leak across attempts.
type Request struct {
	System          string
	User            string
	Temperature     float64 // 0 leaves the backend default
	ReasoningEffort string  // "", "minimal", "low", "medium", "high"
	ForceJSON       bool    // request a bare JSON object via response_format
	Token           string  // optional credential for token-optional backends
}

// Completer is the uniform operation every generative backend exposes.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// wireRequest is the JSON body for POST /chat/completions.
type wireRequest struct {
	Model           string          `json:"model"`
	Messages        []Message       `json:"messages"`
	Temperature     *float64        `json:"temperature,omitempty"`
	ReasoningEffort string          `json:"reasoning_effort,omitempty"`
	Private         bool            `json:"private,omitempty"`
	Stream          bool            `json:"stream"`
	ResponseFormat  *responseFormat `json:"response_format,omitempty"`
	Token           string          `json:"token,omitempty"` // set only by the body-token strategy
}

type responseFormat struct {
	Type string `json:"type"`
}

// clone returns a deep copy of the wire body. Messages hold only strings, so
// copying the slice is sufficient.
func (r wireRequest) clone() wireRequest {
	out := r
	out.Messages = make([]Message, len(r.Messages))
	copy(out.Messages, r.Messages)
	if r.Temperature != nil {
		t := *r.Temperature
		out.Temperature = &t
	}
	return out
}

// wireResponse is the JSON returned by POST /chat/completions.
type wireResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// TransportOptions configures the HTTP client shared by a backend's attempts.
// InsecureSkipVerify is only ever true when the configuration layer allowed
// it for a non-production environment; it is scoped to this client instance,
// never process-wide.
type TransportOptions struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
}

func newHTTPClient(opts TransportOptions) *http.Client {
	c := &http.Client{}
	if opts.InsecureSkipVerify {
		c.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return c
}

func buildWireRequest(model string, req Request, private bool) wireRequest {
	wr := wireRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		ReasoningEffort: req.ReasoningEffort,
		Private:         private,
		Stream:          false,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		wr.Temperature = &t
	}
	if req.ForceJSON {
		wr.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return wr
}
