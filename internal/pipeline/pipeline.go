package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"genretag/internal/config"
	"genretag/internal/logger"
	"genretag/internal/metadata"
	"genretag/internal/report"
	"genretag/pkg/utils"
)

// ErrInvalidPath is returned when the input is neither a directory nor a
// supported audio file.
var ErrInvalidPath = errors.New("the specified path does not exist or is not a supported audio file")

// FileProcessor turns one audio file into an outcome.
type FileProcessor interface {
	Process(ctx context.Context, path string) metadata.FileOutcome
}

// Options select what a run processes and where the report goes.
type Options struct {
	Path       string
	Recursive  bool
	ReportPath string // empty means report.DefaultPath
}

// Hooks are optional callbacks invoked from the processing loop.
type Hooks struct {
	OnFilesFound func(total int)
	OnFileDone   func(outcome metadata.FileOutcome)
	// OnBatchDone runs after the last file, before the report is written.
	OnBatchDone func()
}

// Result summarizes a finished run.
type Result struct {
	Outcomes    []metadata.FileOutcome
	Report      *report.Report // nil when no file was processed
	ReportPath  string
	Interrupted bool
}

// Run enumerates audio files under opts.Path, processes them one at a time
// and writes the genre report. Cancelling ctx stops before the next file;
// the report still covers the files already processed.
func Run(ctx context.Context, opts Options, proc FileProcessor, log *logger.Logger, hooks Hooks) (*Result, error) {
	path := config.ExpandHome(opts.Path)

	info, err := os.Stat(path)
	var files []string
	switch {
	case err == nil && info.IsDir():
		files, err = utils.FindAudioFiles(path, opts.Recursive)
		if err != nil {
			log.Error("Failed to list %s: %v", path, err)
			return nil, fmt.Errorf("failed to list audio files: %w", err)
		}
	case err == nil && info.Mode().IsRegular() && utils.IsSupportedAudio(path):
		files = []string{path}
	default:
		log.Error("The specified path does not exist or is not a supported audio file: %s", path)
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	res := &Result{}
	if len(files) == 0 {
		log.Info("No supported audio files found in %s", path)
		return res, nil
	}

	if hooks.OnFilesFound != nil {
		hooks.OnFilesFound(len(files))
	}

	for i, file := range files {
		if ctx.Err() != nil {
			log.Warn("Interrupted: %d of %d files processed", i, len(files))
			res.Interrupted = true
			break
		}

		// The file in progress finishes even if ctx is cancelled meanwhile.
		log.Found(file)
		outcome := proc.Process(context.WithoutCancel(ctx), file)
		res.Outcomes = append(res.Outcomes, outcome)

		if hooks.OnFileDone != nil {
			hooks.OnFileDone(outcome)
		}
	}

	if hooks.OnBatchDone != nil {
		hooks.OnBatchDone()
	}

	if len(res.Outcomes) == 0 {
		return res, nil
	}

	res.Report = report.Build(res.Outcomes)
	res.ReportPath = config.ExpandHome(opts.ReportPath)
	if res.ReportPath == "" {
		res.ReportPath = report.DefaultPath(path, info.IsDir())
	}

	if err := report.WriteFile(res.ReportPath, res.Report); err != nil {
		log.Error("%v", err)
		return res, err
	}

	log.Info("Report written to: %s", res.ReportPath)
	log.Info("Summary: %d/%d files have a genre tag.", len(res.Report.WithGenre), res.Report.Total())

	return res, nil
}
