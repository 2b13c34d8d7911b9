package deezer

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

// quotaExceeded is the API error code Deezer uses instead of HTTP 429.
const quotaExceeded = 4

// Client is a Deezer API client that implements metadata.Provider.
// Deezer attaches genres to albums, so a lookup is a track search followed
// by an album fetch.
type Client struct {
	httpClient *http.Client
	apiURL     string
	userAgent  string
}

// New creates a new Deezer client.
func New(userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     "https://api.deezer.com",
		userAgent:  userAgent,
	}
}

func (c *Client) Name() string { return "Deezer" }

// Lookup returns the genres of the album carrying the first matching track.
func (c *Client) Lookup(ctx context.Context, key metadata.TrackKey) (string, error) {
	var search searchResponse
	reqURL := fmt.Sprintf("%s/search?q=%s&limit=1", c.apiURL, url.QueryEscape(buildQuery(key)))
	if err := c.get(ctx, reqURL, &search, func() *apiError { return search.Error }); err != nil {
		return "", fmt.Errorf("deezer search failed: %w", err)
	}
	if len(search.Data) == 0 || search.Data[0].Album.ID == 0 {
		return "", nil
	}

	var album albumResponse
	reqURL = fmt.Sprintf("%s/album/%d", c.apiURL, search.Data[0].Album.ID)
	if err := c.get(ctx, reqURL, &album, func() *apiError { return album.Error }); err != nil {
		return "", fmt.Errorf("deezer album lookup failed: %w", err)
	}

	names := make([]string, 0, len(album.Genres.Data))
	for _, g := range album.Genres.Data {
		names = append(names, g.Name)
	}
	return metadata.FormatGenres(names), nil
}

// get decodes reqURL into v. apiErr reports the error object Deezer embeds
// in otherwise successful responses.
func (c *Client) get(ctx context.Context, reqURL string, v any, apiErr func() *apiError) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create deezer request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

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
		return fmt.Errorf("deezer returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode deezer response: %w", err)
	}

	if e := apiErr(); e != nil {
		if e.Code == quotaExceeded {
			return &metadata.RateLimitError{Provider: c.Name(), RetryAfter: 5 * time.Second}
		}
		return fmt.Errorf("deezer API error: %s", e.Message)
	}
	return nil
}

func buildQuery(key metadata.TrackKey) string {
	escape := func(s string) string {
		return strings.ReplaceAll(s, "\"", "")
	}
	return "artist:\"" + escape(key.Artist) + "\" track:\"" + escape(key.Title) + "\""
}

// Deezer API response types

type searchResponse struct {
	Data  []trackItem `json:"data"`
	Error *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type trackItem struct {
	ID     int       `json:"id"`
	Title  string    `json:"title"`
	Artist artist    `json:"artist"`
	Album  albumInfo `json:"album"`
}

type artist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type albumInfo struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type albumResponse struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Genres struct {
		Data []genre `json:"data"`
	} `json:"genres"`
	Error *apiError `json:"error,omitempty"`
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
