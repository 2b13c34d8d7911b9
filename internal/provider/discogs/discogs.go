package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"genretag/internal/metadata"
	"genretag/pkg/utils"

	"golang.org/x/time/rate"
)

// Client is a Discogs database client that implements metadata.Provider.
// Genres are the genres followed by the styles of the first matching release.
type Client struct {
	token      string
	httpClient *http.Client
	apiURL     string
	userAgent  string
	limiter    *rate.Limiter
}

// New creates a new Discogs client authenticated with a personal access token.
func New(token, userAgent string, timeout time.Duration) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     "https://api.discogs.com",
		userAgent:  userAgent,
		// Authenticated clients get 60 requests per minute.
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

func (c *Client) Name() string { return "Discogs" }

// Lookup searches releases for "<artist> <title>" and returns the first
// release's genres and styles.
func (c *Client) Lookup(ctx context.Context, key metadata.TrackKey) (string, error) {
	params := url.Values{}
	params.Set("q", key.Artist+" "+key.Title)
	params.Set("type", "release")
	params.Set("per_page", "1")

	var search searchResponse
	if err := c.get(ctx, c.apiURL+"/database/search?"+params.Encode(), &search); err != nil {
		return "", fmt.Errorf("discogs search failed: %w", err)
	}
	if len(search.Results) == 0 {
		return "", nil
	}
	first := search.Results[0]

	terms := append(append([]string{}, first.Genre...), first.Style...)
	if first.ResourceURL != "" {
		var rel release
		if err := c.get(ctx, first.ResourceURL, &rel); err != nil {
			return "", fmt.Errorf("discogs release lookup failed: %w", err)
		}
		if len(rel.Genres)+len(rel.Styles) > 0 {
			terms = append(append([]string{}, rel.Genres...), rel.Styles...)
		}
	}

	return metadata.FormatGenres(terms), nil
}

func (c *Client) get(ctx context.Context, reqURL string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create discogs request: %w", err)
	}
	req.Header.Set("Authorization", "Discogs token="+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &metadata.RateLimitError{Provider: c.Name(), RetryAfter: utils.RetryAfter(resp.Header)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discogs returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode discogs response: %w", err)
	}
	return nil
}

// Discogs API response types

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Genre       []string `json:"genre"`
	Style       []string `json:"style"`
	ResourceURL string   `json:"resource_url"`
}

type release struct {
	ID     int      `json:"id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
	Styles []string `json:"styles"`
}
