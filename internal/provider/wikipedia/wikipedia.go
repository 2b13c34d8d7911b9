// Package wikipedia reads genres from the infobox of encyclopedia articles.
//
// Two chain entries share one Client: one searches for the song's own
// article, the other for the artist's.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genretag/internal/metadata"
	"genretag/pkg/utils"
)

const searchResults = 3

// Client talks to the MediaWiki search API and fetches article HTML.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// New creates a Wikipedia client for the English-language site.
func New(userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://en.wikipedia.org",
		userAgent:  userAgent,
	}
}

// TrackProvider looks up the article about the song itself.
func (c *Client) TrackProvider() metadata.Provider {
	return &provider{
		name:   "Wikipedia (Track)",
		client: c,
		query:  func(k metadata.TrackKey) string { return k.Title + " " + k.Artist + " song" },
	}
}

// ArtistProvider looks up the article about the performer.
func (c *Client) ArtistProvider() metadata.Provider {
	return &provider{
		name:   "Wikipedia (Artist)",
		client: c,
		query:  func(k metadata.TrackKey) string { return k.Artist + " musician" },
	}
}

type provider struct {
	name   string
	client *Client
	query  func(metadata.TrackKey) string
}

func (p *provider) Name() string { return p.name }

func (p *provider) Lookup(ctx context.Context, key metadata.TrackKey) (string, error) {
	return p.client.Genre(ctx, p.query(key))
}

// Genre searches for query, opens the best hit and returns the genres
// listed in its infobox. An empty string means no usable article.
func (c *Client) Genre(ctx context.Context, query string) (string, error) {
	title, err := c.search(ctx, query)
	if err != nil {
		return "", err
	}
	if title == "" {
		return "", nil
	}

	page, err := c.fetch(ctx, "/wiki/"+url.PathEscape(strings.ReplaceAll(title, " ", "_")))
	if err != nil {
		return "", err
	}
	defer page.Close()

	genres, err := infoboxGenres(page)
	if err != nil {
		return "", fmt.Errorf("failed to parse %q: %w", title, err)
	}
	return metadata.FormatGenres(genres), nil
}

// search returns the title of the top search hit.
func (c *Client) search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprint(searchResults))
	params.Set("srprop", "")
	params.Set("format", "json")

	body, err := c.fetch(ctx, "/w/api.php?"+params.Encode())
	if err != nil {
		return "", err
	}
	defer body.Close()

	var resp searchResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode wikipedia search: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("wikipedia search error: %s", resp.Error.Info)
	}
	if len(resp.Query.Search) == 0 {
		return "", nil
	}
	return resp.Query.Search[0].Title, nil
}

func (c *Client) fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create wikipedia request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request failed: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, &metadata.RateLimitError{Provider: "Wikipedia", RetryAfter: utils.RetryAfter(resp.Header)}
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("wikipedia returned %d for %s", resp.StatusCode, path)
	}
	return resp.Body, nil
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}
