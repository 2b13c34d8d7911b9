package lastfm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"genretag/internal/metadata"
	"genretag/pkg/utils"

	"github.com/tidwall/gjson"
)

const (
	// topTags is how many of the most-applied tags are considered.
	topTags = 5

	errRateLimitExceeded = 29
)

// Client is a Last.fm API client that implements metadata.Provider.
// Genres are the track's top folksonomy tags minus subjective ones.
type Client struct {
	apiKey     string
	httpClient *http.Client
	apiURL     string
	userAgent  string
}

// New creates a new Last.fm client. Only read methods are used, so the
// shared secret is not needed.
func New(apiKey, userAgent string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     "https://ws.audioscrobbler.com/2.0/",
		userAgent:  userAgent,
	}
}

func (c *Client) Name() string { return "Last.fm" }

// Lookup returns the track's top tags after removing stoplisted ones.
func (c *Client) Lookup(ctx context.Context, key metadata.TrackKey) (string, error) {
	params := url.Values{}
	params.Set("method", "track.gettoptags")
	params.Set("artist", key.Artist)
	params.Set("track", key.Title)
	params.Set("autocorrect", "1")
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create last.fm request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("last.fm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &metadata.RateLimitError{Provider: c.Name(), RetryAfter: utils.RetryAfter(resp.Header)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read last.fm response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("last.fm returned %d with invalid json", resp.StatusCode)
	}

	// Errors come back as {"error": <code>, "message": "..."}, sometimes with
	// a non-200 status.
	if code := gjson.GetBytes(body, "error"); code.Exists() {
		if code.Int() == errRateLimitExceeded {
			return "", &metadata.RateLimitError{Provider: c.Name(), RetryAfter: utils.RetryAfter(resp.Header)}
		}
		return "", fmt.Errorf("last.fm error %d: %s", code.Int(), gjson.GetBytes(body, "message").String())
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("last.fm returned %d", resp.StatusCode)
	}

	tags := metadata.FilterStoplist(parseTopTags(body, topTags))
	return metadata.FormatGenres(tags), nil
}

// parseTopTags returns up to limit tag names in response order. A single
// tag is encoded as an object rather than a one-element array.
func parseTopTags(body []byte, limit int) []string {
	tag := gjson.GetBytes(body, "toptags.tag")

	var items []gjson.Result
	switch {
	case tag.IsArray():
		items = tag.Array()
	case tag.IsObject():
		items = []gjson.Result{tag}
	}

	var names []string
	for _, item := range items {
		if len(names) == limit {
			break
		}
		if name := item.Get("name").String(); name != "" {
			names = append(names, name)
		}
	}
	return names
}
