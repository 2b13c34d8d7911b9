package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// FoundMarker starts the line logged right before a file is processed.
// Wrappers that run the tagger as a subprocess key their progress on it.
const FoundMarker = "Found:"

// Logger handles leveled line logging with optional file output
type Logger struct {
	Verbose   bool
	writer    io.Writer
	errWriter io.Writer
	mu        sync.Mutex
	fileLog   *os.File
	hasBar    bool
	colorize  bool
}

var (
	warnPrefix  = color.New(color.FgYellow).SprintFunc()
	debugPrefix = color.New(color.FgCyan).SprintFunc()
	errorPrefix = color.New(color.FgRed, color.Bold).SprintFunc()
)

// New creates a new Logger instance writing to stdout and stderr.
// Level prefixes are colored only when stdout is a terminal.
func New(verbose bool) *Logger {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return &Logger{
		Verbose:   verbose,
		writer:    os.Stdout,
		errWriter: os.Stderr,
		colorize:  tty && !color.NoColor,
	}
}

// NewWithWriter creates a Logger that sends every level, errors included,
// to w without colors.
func NewWithWriter(w io.Writer, verbose bool) *Logger {
	return &Logger{
		Verbose:   verbose,
		writer:    w,
		errWriter: w,
	}
}

// SetFileLog enables logging to a file
func (l *Logger) SetFileLog(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.fileLog = f
	return nil
}

// SetProgressBar indicates that a progress bar is active
func (l *Logger) SetProgressBar(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasBar = active
}

// Close closes the log file if open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		err := l.fileLog.Close()
		l.fileLog = nil
		return err
	}
	return nil
}

// Found logs the marker line for a file that is about to be processed.
func (l *Logger) Found(path string) {
	l.Info("%s %s", FoundMarker, path)
}

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

// Debug logs detailed messages only in verbose mode
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Verbose {
		l.log("DEBUG", format, args...)
	} else {
		// Always log debug to file even in non-verbose mode
		l.logToFile("DEBUG", format, args...)
	}
}

// Error logs error messages to stderr
func (l *Logger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	body := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.errWriter, "%s %s\n", l.prefix("ERROR"), body)

	if l.fileLog != nil {
		l.fileLog.WriteString("[ERROR] " + body + "\n")
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log("WARN", format, args...)
}

// log handles the actual logging
func (l *Logger) log(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	body := fmt.Sprintf(format, args...)
	plain := body + "\n"
	if level != "INFO" {
		plain = "[" + level + "] " + plain
	}

	// Write to stdout (unless we have a progress bar and not verbose)
	if l.Verbose || !l.hasBar {
		if level == "INFO" || !l.colorize {
			fmt.Fprint(l.writer, plain)
		} else {
			fmt.Fprintf(l.writer, "%s %s\n", l.prefix(level), body)
		}
	}

	// Always write to file if available
	if l.fileLog != nil {
		l.fileLog.WriteString(plain)
	}
}

// logToFile writes only to file
func (l *Logger) logToFile(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		msg := fmt.Sprintf("["+level+"] "+format+"\n", args...)
		l.fileLog.WriteString(msg)
	}
}

func (l *Logger) prefix(level string) string {
	tag := "[" + level + "]"
	if !l.colorize {
		return tag
	}
	switch level {
	case "WARN":
		return warnPrefix(tag)
	case "DEBUG":
		return debugPrefix(tag)
	case "ERROR":
		return errorPrefix(tag)
	}
	return tag
}
