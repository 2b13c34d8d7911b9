package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"genretag/internal/config"
	"genretag/internal/logger"
	"genretag/internal/metadata"
	"genretag/internal/pipeline"
	"genretag/internal/progress"
	"genretag/internal/provider"
	"genretag/internal/shutdown"
)

// errReported is returned once a fatal error has already been logged.
var errReported = errors.New("fatal error")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, configPath string, opts *options) error {
	log := logger.New(cfg.Verbose)
	defer log.Close()

	setupFileLog(log, cfg, opts.progress)

	if configPath != "" {
		log.Debug("Loaded configuration from: %s", configPath)
	}

	sh := shutdown.New(ctx)
	sh.Listen(func(sig os.Signal) {
		log.Warn("Received %s, stopping after the current file", sig)
	})
	defer sh.Stop()

	providers, err := provider.Build(cfg, log)
	if err != nil {
		if errors.Is(err, metadata.ErrNoProviders) {
			log.Error("No genre providers are available")
		} else {
			log.Error("%v", err)
		}
		return errReported
	}

	chain := metadata.NewChain(providers, cfg.LookupTimeout, log)
	log.Debug("Provider order: %s", strings.Join(chain.Names(), " → "))

	proc := metadata.NewProcessor(chain, metadata.TaglibStore{}, cfg.DryRun, log)
	if cfg.DryRun {
		log.Info("Dry run: no files will be modified")
	}

	var bar *progress.Bar
	hooks := pipeline.Hooks{
		OnFilesFound: func(total int) {
			log.Debug("%d audio files to process", total)
			if opts.progress && !cfg.Verbose {
				bar = progress.New(os.Stderr, total)
				log.SetProgressBar(true)
			}
		},
		OnFileDone: func(o metadata.FileOutcome) {
			if bar != nil {
				bar.Advance(o.Filename, o.HasGenre())
			}
		},
		OnBatchDone: func() {
			if bar != nil {
				bar.Finish()
				log.SetProgressBar(false)
			}
		},
	}

	res, err := pipeline.Run(sh.Context(), pipeline.Options{
		Path:       opts.path,
		Recursive:  cfg.Recursive,
		ReportPath: opts.reportPath,
	}, proc, log, hooks)
	if err != nil {
		// The pipeline logs its own failures.
		return errReported
	}

	if res.Interrupted {
		log.Warn("Run interrupted; the report only covers the files processed so far")
	}
	return nil
}

// setupFileLog opens the log file named in the config. With a progress bar
// and no explicit file, detailed logs go to a timestamped file in the
// default log directory instead.
func setupFileLog(log *logger.Logger, cfg config.Config, withBar bool) {
	path := cfg.LogFile
	if path == "" {
		if !withBar || cfg.Verbose {
			return
		}
		path = filepath.Join(config.GetDefaultLogPath(), fmt.Sprintf("genretag_%s.log", time.Now().Format("2006-01-02_15-04-05")))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Warn("Failed to create log directory: %v", err)
		return
	}
	if err := log.SetFileLog(path); err != nil {
		log.Warn("Failed to setup file logging: %v", err)
		return
	}
	log.Debug("Logging to file: %s", path)
}
