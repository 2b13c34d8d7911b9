// Package report renders the plain-text genre summary of a batch run.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"genretag/internal/metadata"
)

// FileName is the report's name when no explicit path is given.
const FileName = "genre_report.txt"

var (
	heavyRule = strings.Repeat("=", 60)
	lightRule = strings.Repeat("-", 60)
)

// Report partitions file outcomes by whether they ended with a genre.
type Report struct {
	WithGenre    []metadata.FileOutcome
	WithoutGenre []metadata.FileOutcome
}

// Build partitions outcomes, keeping processing order within each group.
func Build(outcomes []metadata.FileOutcome) *Report {
	r := &Report{}
	for _, o := range outcomes {
		if o.HasGenre() {
			r.WithGenre = append(r.WithGenre, o)
		} else {
			r.WithoutGenre = append(r.WithoutGenre, o)
		}
	}
	return r
}

// Total is the number of processed files.
func (r *Report) Total() int {
	return len(r.WithGenre) + len(r.WithoutGenre)
}

// Percent returns count*100/total rounded down, or 0 for an empty report.
func (r *Report) Percent(count int) int {
	if r.Total() == 0 {
		return 0
	}
	return count * 100 / r.Total()
}

// WriteTo renders the report.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	with, without := len(r.WithGenre), len(r.WithoutGenre)

	fmt.Fprintf(cw, "Genre Report\n")
	fmt.Fprintf(cw, "%s\n", heavyRule)
	fmt.Fprintf(cw, "Total files processed : %d\n", r.Total())
	fmt.Fprintf(cw, "With genre tag        : %d (%d%%)\n", with, r.Percent(with))
	fmt.Fprintf(cw, "Without genre tag     : %d (%d%%)\n", without, r.Percent(without))
	fmt.Fprintf(cw, "%s\n\n", heavyRule)

	fmt.Fprintf(cw, "✔ WITH GENRE (%d files)\n", with)
	fmt.Fprintf(cw, "%s\n", lightRule)
	for _, o := range r.WithGenre {
		fmt.Fprintf(cw, "  %s\n", o.Filename)
		fmt.Fprintf(cw, "    → %s\n", o.Genre)
	}

	fmt.Fprintf(cw, "\n✘ WITHOUT GENRE (%d files)\n", without)
	fmt.Fprintf(cw, "%s\n", lightRule)
	for _, o := range r.WithoutGenre {
		fmt.Fprintf(cw, "  %s\n", o.Filename)
	}

	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, bw.Flush()
}

// String renders the report into a string.
func (r *Report) String() string {
	var sb strings.Builder
	r.WriteTo(&sb)
	return sb.String()
}

// WriteFile renders the report into path, replacing any existing file.
func WriteFile(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report %s: %w", path, err)
	}
	return nil
}

// DefaultPath places the report inside the input directory, or next to the
// input file when a single file was processed.
func DefaultPath(input string, isDir bool) string {
	if isDir {
		return filepath.Join(input, FileName)
	}
	return filepath.Join(filepath.Dir(input), FileName)
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
