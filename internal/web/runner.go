package web

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"genretag/internal/config"
)

const defaultKillDelay = 10 * time.Second

// Runner starts the tagger binary and streams its output line by line.
type Runner struct {
	Binary string
	// KillDelay is how long a cancelled run may take to write its report
	// after the interrupt before it is killed.
	KillDelay time.Duration
}

// NewRunner creates a Runner for the tagger binary at path.
func NewRunner(path string) *Runner {
	return &Runner{Binary: path, KillDelay: defaultKillDelay}
}

// Args translates a request into tagger command-line arguments.
func (r *Runner) Args(req JobRequest) ([]string, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	var args []string
	if req.Recursive != nil && !*req.Recursive {
		args = append(args, "--no-recurse")
	}
	for _, name := range req.Disable {
		if !config.IsKnownProvider(name) {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		args = append(args, "--no-"+name)
	}
	if req.DryRun {
		args = append(args, "--dry-run")
	}
	if req.Report != "" {
		args = append(args, "--report", req.Report)
	}
	return append(args, "--", req.Path), nil
}

// Run executes the tagger for req and calls onLine for every line written
// to stdout or stderr, in order. Cancelling ctx interrupts the tagger so it
// stops between files; it is killed if it has not exited after KillDelay.
func (r *Runner) Run(ctx context.Context, req JobRequest, onLine func(string)) error {
	args, err := r.Args(req)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.KillDelay

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("failed to start %s: %w", r.Binary, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	if scanner.Err() != nil {
		io.Copy(io.Discard, pr)
	}

	if err := <-waitErr; err != nil {
		return fmt.Errorf("tagger exited: %w", err)
	}
	return nil
}
