package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"genretag/internal/metadata"
	"genretag/pkg/utils"
)

// Client is a Spotify Web API client that implements metadata.Provider.
// Genres come from the primary artist of the best matching track.
type Client struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	cacheMu    sync.Mutex
	genreCache map[string][]string // artist ID → genres

	// Overridable for testing
	tokenURL string
	apiURL   string
}

// New creates a new Spotify client. timeout bounds each HTTP request.
func New(clientID, clientSecret string, timeout time.Duration) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		genreCache:   make(map[string][]string),
		tokenURL:     "https://accounts.spotify.com/api/token",
		apiURL:       "https://api.spotify.com/v1",
	}
}

func (c *Client) Name() string { return "Spotify" }

// Lookup searches for the track and returns the genres of its first artist.
func (c *Client) Lookup(ctx context.Context, key metadata.TrackKey) (string, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return "", fmt.Errorf("spotify auth failed: %w", err)
	}

	q := "artist:" + key.Artist + " track:" + key.Title
	reqURL := fmt.Sprintf("%s/search?type=track&limit=1&q=%s", c.apiURL, url.QueryEscape(q))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("spotify search request failed: %w", err)
	}
	defer resp.Body.Close()

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return "", fmt.Errorf("failed to decode spotify response: %w", err)
	}

	if len(searchResp.Tracks.Items) == 0 || len(searchResp.Tracks.Items[0].Artists) == 0 {
		return "", nil
	}
	artistID := searchResp.Tracks.Items[0].Artists[0].ID
	if artistID == "" {
		return "", nil
	}

	genres, err := c.getArtistGenres(ctx, artistID)
	if err != nil {
		return "", err
	}
	return metadata.FormatGenres(genres), nil
}

// getArtistGenres returns genres for an artist, using cache when available.
func (c *Client) getArtistGenres(ctx context.Context, artistID string) ([]string, error) {
	c.cacheMu.Lock()
	if genres, ok := c.genreCache[artistID]; ok {
		c.cacheMu.Unlock()
		return genres, nil
	}
	c.cacheMu.Unlock()

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/artists/%s", c.apiURL, url.PathEscape(artistID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("artist request failed: %w", err)
	}
	defer resp.Body.Close()

	var artistResp artistResponse
	if err := json.NewDecoder(resp.Body).Decode(&artistResp); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.genreCache[artistID] = artistResp.Genres
	c.cacheMu.Unlock()

	return artistResp.Genres, nil
}

// getToken returns a valid access token, refreshing if necessary.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	data := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	// Refresh a bit early to avoid edge-case expiry
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

	return c.accessToken, nil
}

// do executes the request and turns non-200 answers into errors.
// HTTP 429 becomes a *metadata.RateLimitError so the caller can back off.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, &metadata.RateLimitError{Provider: c.Name(), RetryAfter: utils.RetryAfter(resp.Header)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("spotify returned %d: %s", resp.StatusCode, body)
	}
	return resp, nil
}

// Spotify API response types

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type searchResponse struct {
	Tracks struct {
		Items []trackItem `json:"items"`
	} `json:"tracks"`
}

type trackItem struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []artist `json:"artists"`
}

type artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type artistResponse struct {
	Genres []string `json:"genres"`
}
