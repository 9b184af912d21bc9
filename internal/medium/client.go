// Package medium fetches a user's top published articles through a RapidAPI
// Medium gateway. The whole package is best-effort by contract: a profile
// build must never fail because an article lookup did, so every public entry
// point degrades to "no articles" on any error.
package medium

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultLimit   = 5
	requestTimeout = 10 * time.Second
)

// Article is one published piece as returned by the gateway. The upstream
// schema drifts between field names, so both variants of each field are
// decoded and reconciled.
type Article struct {
	ID        string   `json:"id"`
	ArticleID string   `json:"article_id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Claps     int      `json:"claps"`
	ClapCount int      `json:"clap_count"`
	Subtitle  string   `json:"subtitle"`
	Tags      []string `json:"tags"`
}

// Client talks to the RapidAPI Medium gateway. A zero key or host disables
// the client: every call returns empty results.
type Client struct {
	key        string
	host       string
	baseURL    string // overridable for tests
	httpClient *http.Client
}

// New creates a Client. Pass empty key/host to create a disabled client.
func New(key, host string) *Client {
	return &Client{
		key:        key,
		host:       host,
		baseURL:    "https://" + host,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// NewWithBaseURL creates a client pointing at a custom URL (for testing).
func NewWithBaseURL(key, host, baseURL string) *Client {
	c := New(key, host)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Enabled reports whether the gateway credentials are configured.
func (c *Client) Enabled() bool {
	return c.key != "" && c.host != ""
}

// Digest resolves a Medium username to a plain-text summary of their top
// articles, suitable for interleaving into the reformulate prompt. It
// returns "" when the client is disabled, the user is unknown, or any
// request fails.
func (c *Client) Digest(ctx context.Context, username string) string {
	if !c.Enabled() || strings.TrimSpace(username) == "" {
		return ""
	}

	userID, err := c.userID(ctx, username)
	if err != nil || userID == "" {
		slog.Debug("medium user lookup failed", "username", username, "error", err)
		return ""
	}

	articles, err := c.topArticles(ctx, userID, defaultLimit)
	if err != nil {
		slog.Debug("medium article fetch failed", "username", username, "error", err)
		return ""
	}

	return buildDigest(username, articles)
}

type userIDResponse struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
}

func (c *Client) userID(ctx context.Context, username string) (string, error) {
	var out userIDResponse
	if err := c.getJSON(ctx, "/user/id_for/"+url.PathEscape(username), &out); err != nil {
		return "", err
	}
	if out.UserID != "" {
		return out.UserID, nil
	}
	return out.ID, nil
}

// topArticlesResponse covers the gateway's envelope variants; some versions
// return a bare array instead, handled in topArticles.
type topArticlesResponse struct {
	Articles []Article `json:"articles"`
	Items    []Article `json:"items"`
	Data     []Article `json:"data"`
}

func (c *Client) topArticles(ctx context.Context, userID string, limit int) ([]Article, error) {
	raw := json.RawMessage{}
	if err := c.getJSON(ctx, "/user/"+url.PathEscape(userID)+"/top_articles", &raw); err != nil {
		return nil, err
	}

	var list []Article
	if err := json.Unmarshal(raw, &list); err != nil {
		var envelope topArticlesResponse
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decoding articles: %w", err)
		}
		switch {
		case envelope.Articles != nil:
			list = envelope.Articles
		case envelope.Items != nil:
			list = envelope.Items
		default:
			list = envelope.Data
		}
	}

	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.key)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// buildDigest formats articles as the plain-text block the reformulate
// prompt expects for its featured-articles section.
func buildDigest(username string, articles []Article) string {
	var sb strings.Builder
	sb.WriteString("Medium Profile:\n")
	fmt.Fprintf(&sb, "Username: %s\n", username)
	if len(articles) == 0 {
		return sb.String()
	}

	sb.WriteString("Top Articles:\n")
	for _, a := range articles {
		title := a.Title
		if title == "" {
			title = "Untitled"
		}
		line := "- " + title
		if claps := max(a.Claps, a.ClapCount); claps > 0 {
			line += fmt.Sprintf(" | Claps: %d", claps)
		}
		if u := a.articleURL(); u != "" {
			line += " | " + u
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func (a Article) articleURL() string {
	if a.URL != "" {
		return a.URL
	}
	id := a.ArticleID
	if id == "" {
		id = a.ID
	}
	if id == "" {
		return ""
	}
	return "https://medium.com/p/" + id
}
