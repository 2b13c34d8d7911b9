package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoProviders is returned when no genre source survived configuration.
var ErrNoProviders = errors.New("no genre providers are available")

// TrackKey identifies one genre lookup.
type TrackKey struct {
	Artist string
	Title  string
}

// NewTrackKey trims both fields and reports whether a usable key remains.
func NewTrackKey(artist, title string) (TrackKey, bool) {
	key := TrackKey{
		Artist: strings.TrimSpace(artist),
		Title:  strings.TrimSpace(title),
	}
	return key, key.Artist != "" && key.Title != ""
}

func (k TrackKey) String() string {
	return k.Artist + " - " + k.Title
}

// Provider is the interface that genre sources must implement.
// An empty genre with a nil error means the source had nothing for the track.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, key TrackKey) (string, error)
}

// TrackTags holds the fields read from an audio file.
type TrackTags struct {
	Artist  string
	Title   string
	Comment string
	Genre   string
}

// Status describes how a file's processing ended.
type Status string

const (
	StatusMissingTags   Status = "missing-tags"
	StatusUnreadable    Status = "unreadable"
	StatusAlreadyTagged Status = "already-tagged"
	StatusWritten       Status = "written"
	StatusDryRun        Status = "dry-run"
	StatusWriteFailed   Status = "write-failed"
	StatusNotFound      Status = "not-found"
)

// FileOutcome records the genre state of one processed file.
type FileOutcome struct {
	Path     string
	Filename string
	Genre    string // empty when the file ends up without a genre
	Source   string // provider name when the genre was resolved in this run
	Status   Status
}

// HasGenre reports whether the outcome carries a genre.
func (o FileOutcome) HasGenre() bool {
	return o.Genre != ""
}

// RateLimitError signals that a source asked the caller to back off.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
}
