package itunes

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

// Client is an iTunes Search API client that implements metadata.Provider.
type Client struct {
	httpClient *http.Client
	apiURL     string
	userAgent  string
}

// New creates a new iTunes client.
func New(userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     "https://itunes.apple.com/search",
		userAgent:  userAgent,
	}
}

func (c *Client) Name() string { return "iTunes" }

// Lookup returns the primary genre of the first song whose artist matches.
func (c *Client) Lookup(ctx context.Context, key metadata.TrackKey) (string, error) {
	params := url.Values{}
	params.Set("term", key.Artist+" "+key.Title)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", "5")

	reqURL := fmt.Sprintf("%s?%s", c.apiURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create itunes request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("itunes search request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &metadata.RateLimitError{Provider: c.Name(), RetryAfter: utils.RetryAfter(resp.Header)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("itunes search returned %d: %s", resp.StatusCode, body)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return "", fmt.Errorf("failed to decode itunes response: %w", err)
	}

	item, ok := pickResult(searchResp.Results, key.Artist)
	if !ok {
		return "", nil
	}
	return metadata.FormatGenres([]string{item.PrimaryGenreName}), nil
}

// pickResult prefers a result by the requested artist and otherwise takes
// the first one.
func pickResult(items []resultItem, artist string) (resultItem, bool) {
	if len(items) == 0 {
		return resultItem{}, false
	}
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(item.ArtistName), artist) {
			return item, true
		}
	}
	return items[0], true
}

// iTunes Search API response types

type searchResponse struct {
	ResultCount int          `json:"resultCount"`
	Results     []resultItem `json:"results"`
}

type resultItem struct {
	TrackName        string `json:"trackName"`
	ArtistName       string `json:"artistName"`
	PrimaryGenreName string `json:"primaryGenreName"`
}
