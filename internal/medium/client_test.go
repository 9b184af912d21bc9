package medium

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDigest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/user/id_for/janedoe":
			fmt.Fprint(w, `{"user_id":"u123"}`)
		case r.URL.Path == "/user/u123/top_articles":
			fmt.Fprint(w, `{"articles":[
				{"title":"Writing Go Services","url":"https://medium.com/p/abc","claps":42},
				{"article_id":"def","title":"On Retries"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewWithBaseURL("key", "host.example", srv.URL)
	digest := c.Digest(context.Background(), "janedoe")

	if !strings.Contains(digest, "Username: janedoe") {
		t.Errorf("digest missing username: %q", digest)
	}
	if !strings.Contains(digest, "Writing Go Services") || !strings.Contains(digest, "Claps: 42") {
		t.Errorf("digest missing first article: %q", digest)
	}
	if !strings.Contains(digest, "https://medium.com/p/def") {
		t.Errorf("digest should synthesize URL from article id: %q", digest)
	}
}

func TestDigest_BareArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/user/id_for/") {
			fmt.Fprint(w, `{"id":"u1"}`)
			return
		}
		fmt.Fprint(w, `[{"title":"Solo"}]`)
	}))
	defer srv.Close()

	c := NewWithBaseURL("key", "host.example", srv.URL)
	digest := c.Digest(context.Background(), "someone")
	if !strings.Contains(digest, "Solo") {
		t.Errorf("digest = %q", digest)
	}
}

func TestDigest_BestEffortOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWithBaseURL("key", "host.example", srv.URL)
	if digest := c.Digest(context.Background(), "janedoe"); digest != "" {
		t.Errorf("digest = %q, want empty on upstream failure", digest)
	}
}

func TestDigest_Disabled(t *testing.T) {
	c := New("", "")
	if c.Enabled() {
		t.Error("client without credentials should be disabled")
	}
	if digest := c.Digest(context.Background(), "janedoe"); digest != "" {
		t.Errorf("digest = %q, want empty when disabled", digest)
	}
}

func TestDigest_SendsRapidAPIHeaders(t *testing.T) {
	var gotKey, gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-RapidAPI-Key")
		gotHost = r.Header.Get("X-RapidAPI-Host")
		fmt.Fprint(w, `{"user_id":"u1"}`)
	}))
	defer srv.Close()

	c := NewWithBaseURL("secret", "medium.example", srv.URL)
	c.Digest(context.Background(), "janedoe")

	if gotKey != "secret" || gotHost != "medium.example" {
		t.Errorf("headers = %q/%q, want secret/medium.example", gotKey, gotHost)
	}
}
