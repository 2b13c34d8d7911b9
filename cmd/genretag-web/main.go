package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"genretag/internal/config"
	"genretag/internal/logger"
	"genretag/internal/web"

	"github.com/spf13/cobra"
)

func main() {
	var (
		port    int
		tagger  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "genretag-web",
		Short: "Browser front end that runs genretag and streams its progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := findTagger(tagger)
			if err != nil {
				return err
			}
			return serve(port, bin, verbose)
		},
		SilenceUsage: true,
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	cmd.Flags().StringVar(&tagger, "tagger", "", "path to the genretag binary (default: next to this binary, then $PATH)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every request")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(port int, tagger string, verbose bool) error {
	l := logger.New(verbose)
	logDir := config.GetDefaultLogPath()
	if err := os.MkdirAll(logDir, 0755); err == nil {
		logPath := filepath.Join(logDir, fmt.Sprintf("genretag-web-%d.log", time.Now().Unix()))
		if err := l.SetFileLog(logPath); err != nil {
			l.Warn("Failed to setup file logging: %v", err)
		}
	}
	defer l.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobMgr := web.NewJobManager()
	jobMgr.StartCleanup(ctx)
	server := web.NewServer(ctx, jobMgr, web.NewRunner(tagger), l)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("Starting web server on port %d (tagger: %s)", port, tagger)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		l.Error("Server error: %v", err)
		return err
	case <-ctx.Done():
	}

	l.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("Server shutdown error: %v", err)
	}

	l.Info("Server stopped")
	return nil
}

// findTagger resolves the genretag binary: the explicit flag, a sibling of
// this executable, or the first match on $PATH.
func findTagger(flag string) (string, error) {
	if flag != "" {
		if _, err := os.Stat(flag); err != nil {
			return "", fmt.Errorf("tagger binary: %w", err)
		}
		return flag, nil
	}

	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "genretag")
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}

	path, err := exec.LookPath("genretag")
	if err != nil {
		return "", fmt.Errorf("genretag binary not found, pass --tagger: %w", err)
	}
	return path, nil
}
