package metadata

import (
	"context"
	"path/filepath"

	"genretag/internal/logger"
)

// Resolver finds a genre for a track.
type Resolver interface {
	Resolve(ctx context.Context, key TrackKey) (genre, source string)
}

// Processor runs one audio file through extract, skip-if-tagged, resolve
// and write-back.
type Processor struct {
	resolver Resolver
	store    TagStore
	dryRun   bool
	logger   *logger.Logger
}

// NewProcessor creates a Processor. In dry-run mode resolved genres are
// reported but never written.
func NewProcessor(r Resolver, store TagStore, dryRun bool, log *logger.Logger) *Processor {
	return &Processor{resolver: r, store: store, dryRun: dryRun, logger: log}
}

// Process handles a single file and never fails; every problem ends up in
// the returned outcome's Status.
func (p *Processor) Process(ctx context.Context, path string) FileOutcome {
	out := FileOutcome{Path: path, Filename: filepath.Base(path)}

	tags, err := p.store.ReadTags(path)
	if err != nil {
		p.logger.Warn("Could not read tags: %v", err)
		out.Status = StatusUnreadable
		return out
	}

	key, ok := NewTrackKey(tags.Artist, tags.Title)
	if !ok {
		p.logger.Warn("Either artist or title or both were not found in %s", out.Filename)
		out.Status = StatusMissingTags
		return out
	}

	if tags.Genre != "" {
		p.logger.Info("Genre already set to '%s' for %s, skipping.", tags.Genre, path)
		out.Genre = tags.Genre
		out.Status = StatusAlreadyTagged
		return out
	}

	genre, source := p.resolver.Resolve(ctx, key)
	if genre == "" {
		p.logger.Warn("Genre for %s could not be determined.", key)
		out.Status = StatusNotFound
		return out
	}

	if p.dryRun {
		p.logger.Info("Dry run: would set genre to '%s' for %s", genre, path)
		out.Genre, out.Source, out.Status = genre, source, StatusDryRun
		return out
	}

	// Only persisted genres are reported.
	if err := p.store.WriteGenre(path, genre); err != nil {
		p.logger.Error("Failed to update genre: %v", err)
		out.Source = source
		out.Status = StatusWriteFailed
		return out
	}

	p.logger.Info("Genre updated to '%s' for %s", genre, path)
	out.Genre, out.Source, out.Status = genre, source, StatusWritten
	return out
}
