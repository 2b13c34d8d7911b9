package spotify

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

var key = metadata.TrackKey{Artist: "The Weeknd", Title: "Blinding Lights"}

type callCounts struct {
	token  int
	artist int
}

func newTestServer(t *testing.T, search http.HandlerFunc, counts *callCounts) *httptest.Server {
	t.Helper()
	if counts == nil {
		counts = &callCounts{}
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		counts.token++
		if r.Method != http.MethodPost {
			t.Errorf("token: expected POST, got %s", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-id" || pass != "test-secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "test-token",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
		})
	})

	mux.HandleFunc("/v1/search", search)

	mux.HandleFunc("/v1/artists/artist-1", func(w http.ResponseWriter, r *http.Request) {
		counts.artist++
		json.NewEncoder(w).Encode(artistResponse{Genres: []string{"canadian contemporary soul", "pop"}})
	})

	return httptest.NewServer(mux)
}

func newTestClient(url string) *Client {
	client := New("test-id", "test-secret", 5*time.Second)
	client.tokenURL = url + "/api/token"
	client.apiURL = url + "/v1"
	return client
}

func oneTrack(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	resp := searchResponse{}
	resp.Tracks.Items = []trackItem{
		{ID: "track-1", Name: "Blinding Lights", Artists: []artist{{ID: "artist-1", Name: "The Weeknd"}}},
	}
	json.NewEncoder(w).Encode(resp)
}

func TestLookup(t *testing.T) {
	var gotQuery string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		oneTrack(w, r)
	}, nil)
	defer server.Close()

	genre, err := newTestClient(server.URL).Lookup(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if genre != "Canadian Contemporary Soul, Pop" {
		t.Errorf("genre = %q, want %q", genre, "Canadian Contemporary Soul, Pop")
	}
	if gotQuery != "artist:The Weeknd track:Blinding Lights" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestLookupNoResults(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{})
	}, nil)
	defer server.Close()

	genre, err := newTestClient(server.URL).Lookup(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if genre != "" {
		t.Errorf("expected empty genre, got %q", genre)
	}
}

func TestLookupRateLimited(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}, nil)
	defer server.Close()

	_, err := newTestClient(server.URL).Lookup(context.Background(), key)

	var rl *metadata.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want RateLimitError", err)
	}
	if rl.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %s, want 3s", rl.RetryAfter)
	}
}

func TestLookupServerError(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, nil)
	defer server.Close()

	if _, err := newTestClient(server.URL).Lookup(context.Background(), key); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestTokenAndGenreCaching(t *testing.T) {
	counts := &callCounts{}
	server := newTestServer(t, oneTrack, counts)
	defer server.Close()

	client := newTestClient(server.URL)
	client.Lookup(context.Background(), key)
	client.Lookup(context.Background(), metadata.TrackKey{Artist: "The Weeknd", Title: "Save Your Tears"})

	if counts.token != 1 {
		t.Errorf("expected 1 token call, got %d", counts.token)
	}
	if counts.artist != 1 {
		t.Errorf("expected 1 artist call, got %d", counts.artist)
	}
}
