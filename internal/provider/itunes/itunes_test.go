package itunes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"genretag/internal/metadata"
)

func newTestClient(url string) *Client {
	c := New("genretag-test", 5*time.Second)
	c.apiURL = url
	return c
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("term") != "Daft Punk One More Time" || q.Get("entity") != "song" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "genretag-test" {
			t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
		}
		json.NewEncoder(w).Encode(searchResponse{
			ResultCount: 2,
			Results: []resultItem{
				{TrackName: "One More Time (Cover)", ArtistName: "Someone Else", PrimaryGenreName: "Pop"},
				{TrackName: "One More Time", ArtistName: "Daft Punk", PrimaryGenreName: "electronic"},
			},
		})
	}))
	defer srv.Close()

	genre, err := newTestClient(srv.URL).Lookup(context.Background(),
		metadata.TrackKey{Artist: "Daft Punk", Title: "One More Time"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if genre != "Electronic" {
		t.Errorf("genre = %q, want Electronic", genre)
	}
}

func TestLookupNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultCount": 0, "results": []}`))
	}))
	defer srv.Close()

	genre, err := newTestClient(srv.URL).Lookup(context.Background(), metadata.TrackKey{Artist: "a", Title: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if genre != "" {
		t.Errorf("expected empty genre, got %q", genre)
	}
}

func TestLookupRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Lookup(context.Background(), metadata.TrackKey{Artist: "a", Title: "b"})
	var rl *metadata.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want RateLimitError", err)
	}
}
