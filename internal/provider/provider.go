// Package provider assembles the genre lookup chain from configuration.
//
// The Provider interface is defined in internal/metadata (metadata.Provider),
// following the Go convention of defining interfaces where they are consumed.
// Each sub-package here implements that interface for a specific service.
package provider

import (
	"genretag/internal/config"
	"genretag/internal/logger"
	"genretag/internal/metadata"
	"genretag/internal/provider/deezer"
	"genretag/internal/provider/discogs"
	"genretag/internal/provider/itunes"
	"genretag/internal/provider/lastfm"
	"genretag/internal/provider/musicbrainz"
	"genretag/internal/provider/spotify"
	"genretag/internal/provider/wikipedia"
)

// family is one configurable group of chain entries.
type family struct {
	label string
	// available reports whether the family can run and, if not, why.
	available func(cfg config.Config) (bool, string)
	build     func(cfg config.Config) []metadata.Provider
	// note, when set, returns a debug message about an enabled family.
	note func(cfg config.Config) string
}

func always(config.Config) (bool, string) { return true, "" }

var families = map[string]family{
	config.ProviderSpotify: {
		label: "Spotify",
		available: func(cfg config.Config) (bool, string) {
			if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
				return false, "no client credentials"
			}
			return true, ""
		},
		build: func(cfg config.Config) []metadata.Provider {
			return []metadata.Provider{spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.RequestTimeout)}
		},
	},
	config.ProviderLastFM: {
		label: "Last.fm",
		available: func(cfg config.Config) (bool, string) {
			if cfg.LastFMAPIKey == "" {
				return false, "no API key"
			}
			return true, ""
		},
		build: func(cfg config.Config) []metadata.Provider {
			return []metadata.Provider{lastfm.New(cfg.LastFMAPIKey, cfg.UserAgent, cfg.RequestTimeout)}
		},
		note: func(cfg config.Config) string {
			if cfg.LastFMAPISecret != "" {
				return "API secret is set but unused, lookups only need the key"
			}
			return ""
		},
	},
	config.ProviderDiscogs: {
		label: "Discogs",
		available: func(cfg config.Config) (bool, string) {
			if cfg.DiscogsToken == "" {
				return false, "no token"
			}
			return true, ""
		},
		build: func(cfg config.Config) []metadata.Provider {
			return []metadata.Provider{discogs.New(cfg.DiscogsToken, cfg.UserAgent, cfg.RequestTimeout)}
		},
	},
	config.ProviderMusicBrainz: {
		label:     "MusicBrainz",
		available: always,
		build: func(cfg config.Config) []metadata.Provider {
			return []metadata.Provider{musicbrainz.New(cfg.UserAgent, cfg.RequestTimeout)}
		},
	},
	config.ProviderITunes: {
		label:     "iTunes",
		available: always,
		build: func(cfg config.Config) []metadata.Provider {
			return []metadata.Provider{itunes.New(cfg.UserAgent, cfg.RequestTimeout)}
		},
	},
	config.ProviderDeezer: {
		label:     "Deezer",
		available: always,
		build: func(cfg config.Config) []metadata.Provider {
			return []metadata.Provider{deezer.New(cfg.UserAgent, cfg.RequestTimeout)}
		},
	},
	config.ProviderWikipedia: {
		label:     "Wikipedia",
		available: always,
		build: func(cfg config.Config) []metadata.Provider {
			c := wikipedia.New(cfg.UserAgent, cfg.WikipediaTimeout)
			return []metadata.Provider{c.TrackProvider(), c.ArtistProvider()}
		},
	},
}

// Build returns the chain entries for cfg.Providers in list order. Families
// without credentials are skipped with a log line. Every entry is wrapped
// with the bounded rate-limit retry. Returns metadata.ErrNoProviders when
// nothing is left.
func Build(cfg config.Config, log *logger.Logger) ([]metadata.Provider, error) {
	var providers []metadata.Provider
	for _, name := range cfg.Providers {
		f, ok := families[name]
		if !ok {
			log.Warn("%s: disabled (unknown provider)", name)
			continue
		}
		if ok, reason := f.available(cfg); !ok {
			log.Info("%s: disabled (%s)", f.label, reason)
			continue
		}
		for _, p := range f.build(cfg) {
			providers = append(providers, metadata.WithRateLimitRetry(p, cfg.MaxRateLimitRetries, cfg.MaxRetryWait, log))
		}
		log.Info("%s: enabled", f.label)
		if f.note != nil {
			if msg := f.note(cfg); msg != "" {
				log.Debug("%s: %s", f.label, msg)
			}
		}
	}

	if len(providers) == 0 {
		return nil, metadata.ErrNoProviders
	}
	return providers, nil
}
