package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type recordedRequest struct {
	Method      string
	Path        string
	Body        string
	Auth        string
	UserID      string
	ContentType string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.RequestURI(),
			Body:        body.String(),
			Auth:        r.Header.Get("Authorization"),
			UserID:      r.Header.Get("X-User-Id"),
			ContentType: r.Header.Get("Content-Type"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		userID:     "local",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestUploadPDFRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /pdf": `{"slug":"jdoe-abc123","display_name":"Jane Doe","profile":{"sections":[{"header":"About","text":"hi"}]}}`,
	})

	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "cv.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := ts.client().uploadPDF(ctx, pdfPath, "jdoe")
	if err != nil {
		t.Fatalf("uploadPDF: %v", err)
	}

	var result profilePayload
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Slug != "jdoe-abc123" {
		t.Errorf("slug = %q", result.Slug)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q", r.Auth)
	}
	if r.UserID != "local" {
		t.Errorf("user id = %q", r.UserID)
	}
	if !strings.HasPrefix(r.ContentType, "multipart/form-data") {
		t.Errorf("content type = %q", r.ContentType)
	}
	if !strings.Contains(r.Body, "%PDF-1.4 test") || !strings.Contains(r.Body, "jdoe") {
		t.Error("multipart body missing file content or medium username")
	}
}

func TestUploadPDF_MissingFile(t *testing.T) {
	ts := newTestServer(t, nil)
	if _, err := ts.client().uploadPDF(ctx, "/does/not/exist.pdf", ""); err == nil {
		t.Error("expected error for missing file")
	}
	if len(ts.requests) != 0 {
		t.Errorf("no request should reach the server, got %d", len(ts.requests))
	}
}

func TestAugmentRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /profile/augment": `{"slug":"jdoe-abc123","display_name":"Jane Doe","profile":{"sections":[]}}`,
	})

	resp, err := ts.client().post(ctx, "/profile/augment", map[string]string{"instructions": "add hobbies"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var result profilePayload
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse: %v", err)
	}
	if body["instructions"] != "add hobbies" {
		t.Errorf("instructions = %q", body["instructions"])
	}
}

func TestDecodeJSON_ServerError(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().get(ctx, "/profile")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var out map[string]any
	err = decodeJSON(resp, &out)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestClientUnreachableServer(t *testing.T) {
	c := &apiClient{
		baseURL:    "http://127.0.0.1:1",
		userID:     "local",
		httpClient: &http.Client{Timeout: 200 * time.Millisecond},
	}
	_, err := c.get(ctx, "/profile")
	if err == nil || !strings.Contains(err.Error(), "is perfil running") {
		t.Errorf("error = %v, want reachability hint", err)
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorGreen, "ok"); strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorGreen, "ok"); !strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := pidFilePath(dir)

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after removePIDFile")
	}
}
