package backend

import "fmt"

const bodySnippetLimit = 200

// ConfigError is a fatal request/configuration failure (HTTP 400). Retrying
// a malformed request cannot help, so it aborts all remaining strategies and
// attempts immediately.
type ConfigError struct {
	Status int
	Body   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid request configuration (HTTP %d): %s", e.Status, e.Body)
}

// AuthError is a credential rejection (HTTP 401/403) while a credential was
// attached. It abandons the current strategy and advances to the next one.
type AuthError struct {
	Status   int
	Strategy string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (HTTP %d) using strategy %q", e.Status, e.Strategy)
}

// TransientError is a retryable failure: timeout, network error, 502/503, or
// an empty generation.
type TransientError struct {
	Reason string
	Cause  error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transient upstream failure: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("transient upstream failure: %s", e.Reason)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// UpstreamError is any other non-2xx response. It stays subject to the retry
// loop but carries the status and body for the caller.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (HTTP %d): %s", e.Status, e.Body)
}

// ExhaustedError wraps the last observed failure after every strategy and
// attempt ran out.
type ExhaustedError struct {
	Last error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all attempts exhausted: %v", e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func bodySnippet(b []byte) string {
	s := string(b)
	if len(s) > bodySnippetLimit {
		return s[:bodySnippetLimit] + "..."
	}
	return s
}
