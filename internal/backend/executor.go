package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	maxRetries = 3
	baseDelay  = 2 * time.Second
)

// Strategy is one way of attaching credentials to a single request attempt.
// Strategies are tried in order; each gets up to maxRetries attempts before
// the executor advances to the next one.
type Strategy struct {
	Name        string
	AppliesAuth bool
	Apply       func(header http.Header, body *wireRequest)
}

// tokenStrategies builds the canonical strategy order for a token-optional
// backend: bearer header, token embedded in the body, then anonymous.
func tokenStrategies(token string) []Strategy {
	var out []Strategy
	if token != "" {
		out = append(out,
			Strategy{
				Name:        "bearer header",
				AppliesAuth: true,
				Apply: func(h http.Header, _ *wireRequest) {
					h.Set("Authorization", "Bearer "+token)
				},
			},
			Strategy{
				Name:        "token in body",
				AppliesAuth: true,
				Apply: func(_ http.Header, body *wireRequest) {
					body.Token = token
				},
			},
		)
	}
	out = append(out, Strategy{
		Name:        "anonymous",
		AppliesAuth: false,
		Apply:       func(http.Header, *wireRequest) {},
	})
	return out
}

// executor issues one logical completion against a single endpoint, walking
// an ordered strategy list with bounded per-strategy retries and exponential
// backoff. It decouples which credentials to try from how many times a given
// credential choice is retried.
type executor struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration

	// after is time.After, replaceable in tests.
	after func(time.Duration) <-chan time.Time
}

func newExecutor(url string, httpClient *http.Client, timeout time.Duration) *executor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &executor{
		url:        url,
		httpClient: httpClient,
		timeout:    timeout,
		after:      time.After,
	}
}

// do runs the strategy × attempt progression. Each attempt yields one of:
// success, retryable failure, strategy abandonment, or fatal failure.
func (x *executor) do(ctx context.Context, base wireRequest, strategies []Strategy) (string, error) {
	var lastErr error

	for _, st := range strategies {
	attempts:
		for attempt := 1; attempt <= maxRetries; attempt++ {
			content, err := x.attempt(ctx, base, st)
			if err == nil {
				return content, nil
			}
			lastErr = err

			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				// Malformed request: no strategy or retry can fix it.
				return "", err
			}

			var authErr *AuthError
			if errors.As(err, &authErr) {
				slog.Debug("credential rejected, advancing strategy",
					"strategy", st.Name, "status", authErr.Status)
				break attempts
			}

			slog.Debug("attempt failed",
				"strategy", st.Name, "attempt", attempt, "error", err)

			if attempt < maxRetries {
				delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-x.after(delay):
				}
			}
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no usable authentication strategy")
	}
	return "", &ExhaustedError{Last: lastErr}
}

// attempt performs one HTTP call under the per-attempt timeout. The base body
// is cloned first so strategy mutations never bleed into later attempts.
func (x *executor) attempt(ctx context.Context, base wireRequest, st Strategy) (string, error) {
	body := base.clone()
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	st.Apply(header, &body)

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, x.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := x.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return "", &TransientError{Reason: "attempt timed out", Cause: err}
		}
		return "", &TransientError{Reason: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch {
		case resp.StatusCode == http.StatusBadRequest:
			return "", &ConfigError{Status: resp.StatusCode, Body: bodySnippet(respBody)}
		case (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) && st.AppliesAuth:
			return "", &AuthError{Status: resp.StatusCode, Strategy: st.Name}
		case resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable:
			return "", &TransientError{Reason: fmt.Sprintf("service unavailable (HTTP %d)", resp.StatusCode)}
		default:
			return "", &UpstreamError{Status: resp.StatusCode, Body: bodySnippet(respBody)}
		}
	}

	var result wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &TransientError{Reason: "decoding response", Cause: err}
	}
	if len(result.Choices) == 0 {
		return "", &TransientError{Reason: "response contained no choices"}
	}

	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		// Empty generations are not accepted; treat as a failed attempt.
		return "", &TransientError{Reason: "empty generation"}
	}
	return content, nil
}
