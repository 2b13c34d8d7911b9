package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"genretag/internal/config"

	"github.com/spf13/cobra"
)

type options struct {
	path       string
	configPath string
	reportPath string
	logFile    string
	timeout    time.Duration
	noRecurse  bool
	verbose    bool
	dryRun     bool
	progress   bool
	initConfig bool
	disabled   map[string]*bool
}

func newRootCommand() *cobra.Command {
	return buildRootCommand(&options{})
}

func buildRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genretag [flags] [path]",
		Short: "Fill in missing genre tags of MP3 and FLAC files",
		Long: `genretag reads the artist and title of every MP3 and FLAC file under a
folder, asks online sources for the genre of each untagged track and writes
the first genre found back into the file. A genre_report.txt summary is
written next to the processed files.

Sources are tried in order: Spotify, Last.fm, Discogs, Wikipedia. Sources
without credentials are skipped.

Examples:
  genretag ~/Music/Library
  genretag --dry-run --no-spotify ~/Music/new
  genretag -p ~/Music/album/track.flac`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.initConfig {
				return initConfigFile(cmd.OutOrStdout(), config.GetDefaultConfigPath())
			}

			if len(args) == 1 {
				if opts.path != "" && opts.path != args[0] {
					return fmt.Errorf("conflicting paths: %q and --path %q", args[0], opts.path)
				}
				opts.path = args[0]
			}
			if opts.path == "" {
				return errors.New("a path is required (positional argument or --path)")
			}

			cfg, configPath, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, configPath, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.path, "path", "p", "", "folder or single audio file to process")
	f.StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	f.StringVar(&opts.reportPath, "report", "", "where to write the report (default: <folder>/genre_report.txt)")
	f.StringVar(&opts.logFile, "log-file", "", "also write detailed logs to this file")
	f.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout for online lookups (e.g. 15s)")
	f.BoolVar(&opts.noRecurse, "no-recurse", false, "do not descend into sub-folders")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "show detailed output")
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "look up genres without writing them")
	f.BoolVar(&opts.progress, "progress", false, "show a progress bar instead of per-file logs")
	f.BoolVar(&opts.initConfig, "init-config", false, "create a default config file and exit")

	opts.disabled = make(map[string]*bool, len(config.KnownProviders))
	for _, name := range config.KnownProviders {
		v := new(bool)
		opts.disabled[name] = v
		f.BoolVar(v, "no-"+name, false, fmt.Sprintf("skip the %s provider", name))
	}

	return cmd
}

// resolveConfig layers flags over environment over config file over
// defaults, then validates the result.
func resolveConfig(cmd *cobra.Command, opts *options) (config.Config, string, error) {
	cfg, err := config.LoadConfigFile(opts.configPath)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to load config: %w", err)
	}
	configPath := opts.configPath
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, "", err
	}

	flags := cmd.Flags()
	if opts.verbose {
		cfg.Verbose = true
	}
	if opts.dryRun {
		cfg.DryRun = true
	}
	if opts.noRecurse {
		cfg.Recursive = false
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = opts.timeout
	}
	if flags.Changed("log-file") {
		cfg.LogFile = config.ExpandHome(opts.logFile)
	}
	for _, name := range config.KnownProviders {
		if *opts.disabled[name] {
			cfg.DisableProvider(name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", fmt.Errorf("configuration error: %w", err)
	}
	return cfg, configPath, nil
}

// initConfigFile writes the default configuration to path unless a file
// already exists there.
func initConfigFile(out io.Writer, path string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "Config file already exists at: %s\n", path)
		fmt.Fprintln(out, "Delete it first if you want to recreate it.")
		return nil
	}

	if err := config.SaveConfigFile(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(out, "Created default config file at: %s\n", path)
	fmt.Fprintln(out, "\nYou can now edit this file to add your credentials.")
	fmt.Fprintln(out, "Available options:")
	fmt.Fprintln(out, "  providers: ordered list (spotify, lastfm, discogs, wikipedia, musicbrainz, itunes, deezer)")
	fmt.Fprintln(out, "  spotify_client_id / spotify_client_secret: Spotify API credentials")
	fmt.Fprintln(out, "  lastfm_api_key: Last.fm API key")
	fmt.Fprintln(out, "  discogs_token: Discogs personal access token")
	fmt.Fprintln(out, "  request_timeout / wikipedia_timeout / lookup_timeout: durations such as 10s or 2m")
	fmt.Fprintln(out, "  max_rate_limit_retries: 0-3 retries after a rate-limit response")
	fmt.Fprintln(out, "  recursive / dry_run / verbose: true/false")
	fmt.Fprintln(out, "Credentials can also be set with GENRETAG_SPOTIFY_CLIENT_ID, GENRETAG_LASTFM_API_KEY, ...")
	return nil
}
