package metadata

import (
	"fmt"
	"strings"

	"go.senan.xyz/taglib"
)

// TagStore reads and writes the tags the tagger cares about.
type TagStore interface {
	ReadTags(path string) (TrackTags, error)
	WriteGenre(path, genre string) error
}

// TaglibStore is a TagStore backed by taglib. It handles MP3 and FLAC
// alike; container-specific field names are mapped by taglib.
type TaglibStore struct{}

// ReadTags returns the artist, title, comment and genre of an audio file.
func (TaglibStore) ReadTags(path string) (TrackTags, error) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return TrackTags{}, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}

	return TrackTags{
		Artist:  firstTag(tags, taglib.Artist),
		Title:   firstTag(tags, taglib.Title),
		Comment: firstTag(tags, taglib.Comment),
		Genre:   firstTag(tags, taglib.Genre),
	}, nil
}

// WriteGenre replaces the genre of an audio file and leaves other tags alone.
func (TaglibStore) WriteGenre(path, genre string) error {
	tags := map[string][]string{
		taglib.Genre: {genre},
	}
	if err := taglib.WriteTags(path, tags, 0); err != nil {
		return fmt.Errorf("failed to write genre to %s: %w", path, err)
	}
	return nil
}

func firstTag(tags map[string][]string, key string) string {
	if vals, ok := tags[key]; ok && len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
