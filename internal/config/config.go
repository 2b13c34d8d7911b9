package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"genretag/pkg/utils"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Provider family names as they appear in the providers list.
const (
	ProviderSpotify     = "spotify"
	ProviderLastFM      = "lastfm"
	ProviderDiscogs     = "discogs"
	ProviderMusicBrainz = "musicbrainz"
	ProviderITunes      = "itunes"
	ProviderDeezer      = "deezer"
	ProviderWikipedia   = "wikipedia"
)

// KnownProviders lists every family that can appear in the providers list.
var KnownProviders = []string{
	ProviderSpotify,
	ProviderLastFM,
	ProviderDiscogs,
	ProviderMusicBrainz,
	ProviderITunes,
	ProviderDeezer,
	ProviderWikipedia,
}

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "GENRETAG"

const maxRateLimitRetries = 3

// Config contains the program configuration
type Config struct {
	Providers           []string      `yaml:"providers"`
	SpotifyClientID     string        `yaml:"spotify_client_id"`
	SpotifyClientSecret string        `yaml:"spotify_client_secret"`
	LastFMAPIKey        string        `yaml:"lastfm_api_key"`
	LastFMAPISecret     string        `yaml:"lastfm_api_secret"`
	DiscogsToken        string        `yaml:"discogs_token"`
	UserAgent           string        `yaml:"user_agent"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	WikipediaTimeout    time.Duration `yaml:"wikipedia_timeout"`
	LookupTimeout       time.Duration `yaml:"lookup_timeout"`
	MaxRateLimitRetries int           `yaml:"max_rate_limit_retries"`
	MaxRetryWait        time.Duration `yaml:"max_retry_wait"`
	Recursive           bool          `yaml:"recursive"`
	DryRun              bool          `yaml:"dry_run"`
	Verbose             bool          `yaml:"verbose"`
	LogFile             string        `yaml:"log_file"`
}

// credentials are the settings that may come from the environment.
type credentials struct {
	SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`
	LastFMAPIKey        string `envconfig:"LASTFM_API_KEY"`
	LastFMAPISecret     string `envconfig:"LASTFM_API_SECRET"`
	DiscogsToken        string `envconfig:"DISCOGS_TOKEN"`
	UserAgent           string `envconfig:"USER_AGENT"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Providers:           []string{ProviderSpotify, ProviderLastFM, ProviderDiscogs, ProviderWikipedia},
		UserAgent:           utils.DefaultUserAgent,
		RequestTimeout:      10 * time.Second,
		WikipediaTimeout:    5 * time.Second,
		LookupTimeout:       2 * time.Minute,
		MaxRateLimitRetries: 1,
		MaxRetryWait:        60 * time.Second,
		Recursive:           true,
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.LogFile = ExpandHome(cfg.LogFile)

	return cfg, nil
}

// ApplyEnv overrides credentials with non-empty GENRETAG_* environment
// variables, e.g. GENRETAG_DISCOGS_TOKEN. envconfig falls back to the
// unprefixed name (DISCOGS_TOKEN) when the prefixed one is unset.
func (c *Config) ApplyEnv() error {
	var env credentials
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&c.SpotifyClientID, env.SpotifyClientID)
	override(&c.SpotifyClientSecret, env.SpotifyClientSecret)
	override(&c.LastFMAPIKey, env.LastFMAPIKey)
	override(&c.LastFMAPISecret, env.LastFMAPISecret)
	override(&c.DiscogsToken, env.DiscogsToken)
	override(&c.UserAgent, env.UserAgent)
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./genretag.yaml",
		"./genretag.yml",
		filepath.Join(home, ".config", "genretag", "config.yaml"),
		filepath.Join(home, ".config", "genretag", "config.yml"),
		filepath.Join(home, ".genretag.yaml"),
		filepath.Join(home, ".genretag.yml"),
	}

	for _, path := range locations {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Credentials live here, keep it private.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "genretag", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "genretag", "logs")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid. Missing credentials are
// not an error; they only disable the affected provider.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if !IsKnownProvider(p) {
			return fmt.Errorf("unknown provider %q, valid providers: %s", p, strings.Join(KnownProviders, ", "))
		}
		if seen[p] {
			return fmt.Errorf("provider %q listed more than once", p)
		}
		seen[p] = true
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.WikipediaTimeout <= 0 {
		return fmt.Errorf("wikipedia_timeout must be positive, got %s", c.WikipediaTimeout)
	}
	if c.LookupTimeout < 0 {
		return fmt.Errorf("lookup_timeout cannot be negative, got %s", c.LookupTimeout)
	}

	if c.MaxRateLimitRetries < 0 || c.MaxRateLimitRetries > maxRateLimitRetries {
		return fmt.Errorf("max_rate_limit_retries must be between 0 and %d, got %d", maxRateLimitRetries, c.MaxRateLimitRetries)
	}
	if c.MaxRetryWait <= 0 {
		return fmt.Errorf("max_retry_wait must be positive, got %s", c.MaxRetryWait)
	}

	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("user_agent cannot be empty")
	}

	return nil
}

// DisableProvider removes the family from the providers list.
func (c *Config) DisableProvider(name string) {
	kept := c.Providers[:0:0]
	for _, p := range c.Providers {
		if p != name {
			kept = append(kept, p)
		}
	}
	c.Providers = kept
}

// IsKnownProvider reports whether name is a valid providers list entry.
func IsKnownProvider(name string) bool {
	for _, p := range KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}
