package discogs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"genretag/internal/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var key = metadata.TrackKey{Artist: "Daft Punk", Title: "Around the World"}

func newTestClient(url string) *Client {
	c := New("test-token", "genretag-test", 5*time.Second)
	c.apiURL = url
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestLookup_GenresThenStyles(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/database/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Discogs token=test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "Daft Punk Around the World", r.URL.Query().Get("q"))
		assert.Equal(t, "release", r.URL.Query().Get("type"))
		fmt.Fprintf(w, `{"results": [{"id": 1, "title": "Daft Punk - Homework",
			"genre": ["Electronic"], "style": ["House"], "resource_url": "%s/releases/1"}]}`, srv.URL)
	})
	mux.HandleFunc("/releases/1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Discogs token=test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id": 1, "genres": ["Electronic"], "styles": ["french house", "Disco"]}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	genre, err := newTestClient(srv.URL).Lookup(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "Electronic, French House, Disco", genre)
}

func TestLookup_SearchFieldsWhenDetailsEmpty(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/database/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results": [{"id": 2, "genre": ["Jazz"], "style": ["Bop"], "resource_url": "%s/releases/2"}]}`, srv.URL)
	})
	mux.HandleFunc("/releases/2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 2}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	genre, err := newTestClient(srv.URL).Lookup(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "Jazz, Bop", genre)
}

func TestLookup_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pagination": {"items": 0}, "results": []}`))
	}))
	defer srv.Close()

	genre, err := newTestClient(srv.URL).Lookup(context.Background(), key)
	require.NoError(t, err)
	assert.Empty(t, genre)
}

func TestLookup_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "You must authenticate to access this resource."}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Lookup(context.Background(), key)
	assert.Error(t, err)
}

func TestLookup_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "4")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Lookup(context.Background(), key)
	var rl *metadata.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 4*time.Second, rl.RetryAfter)
}
