package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"genretag/internal/metadata"
	"genretag/pkg/utils"

	"golang.org/x/time/rate"
)

// Client is a MusicBrainz Web API client that implements metadata.Provider.
// Genres are the community-voted genres of the matching recording, falling
// back to those of its first credited artist.
type Client struct {
	httpClient *http.Client
	apiURL     string
	userAgent  string
	limiter    *rate.Limiter
}

// New creates a new MusicBrainz client.
func New(userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     "https://musicbrainz.org/ws/2",
		userAgent:  userAgent,
		// MusicBrainz allows one request per second per client.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (c *Client) Name() string { return "MusicBrainz" }

// Lookup finds the recording for key and returns its genres.
func (c *Client) Lookup(ctx context.Context, key metadata.TrackKey) (string, error) {
	q := fmt.Sprintf("artist:%q AND recording:%q", key.Artist, key.Title)

	var search searchResponse
	if err := c.get(ctx, "/recording?limit=1&query="+url.QueryEscape(q), &search); err != nil {
		return "", fmt.Errorf("musicbrainz search failed: %w", err)
	}
	if len(search.Recordings) == 0 {
		return "", nil
	}
	rec := search.Recordings[0]

	var details entityGenres
	if err := c.get(ctx, "/recording/"+url.PathEscape(rec.ID)+"?inc=genres", &details); err != nil {
		return "", fmt.Errorf("musicbrainz recording lookup failed: %w", err)
	}
	if genres := rankGenres(details.Genres); len(genres) > 0 {
		return metadata.FormatGenres(genres), nil
	}

	if len(rec.ArtistCredit) == 0 || rec.ArtistCredit[0].Artist.ID == "" {
		return "", nil
	}
	var artist entityGenres
	if err := c.get(ctx, "/artist/"+url.PathEscape(rec.ArtistCredit[0].Artist.ID)+"?inc=genres", &artist); err != nil {
		return "", fmt.Errorf("musicbrainz artist lookup failed: %w", err)
	}
	return metadata.FormatGenres(rankGenres(artist.Genres)), nil
}

// get waits for the rate limiter, fetches path as JSON and decodes it into v.
func (c *Client) get(ctx context.Context, path string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path+sep+"fmt=json", nil)
	if err != nil {
		return fmt.Errorf("failed to create musicbrainz request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return &metadata.RateLimitError{Provider: c.Name(), RetryAfter: utils.RetryAfter(resp.Header)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("musicbrainz returned %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// rankGenres orders genres by vote count, most voted first, then by name.
func rankGenres(genres []genre) []string {
	sorted := make([]genre, len(genres))
	copy(sorted, genres)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Name < sorted[j].Name
	})

	names := make([]string, 0, len(sorted))
	for _, g := range sorted {
		names = append(names, g.Name)
	}
	return names
}

// MusicBrainz API response types

type searchResponse struct {
	Recordings []recording `json:"recordings"`
}

type recording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	ArtistCredit []artistCredit `json:"artist-credit"`
}

type artistCredit struct {
	Artist artistInfo `json:"artist"`
}

type artistInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type entityGenres struct {
	Genres []genre `json:"genres"`
}

type genre struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
