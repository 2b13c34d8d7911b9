package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	barWidth      = 40
	labelWidth    = 30
	redrawEvery   = 250 * time.Millisecond
	filledGlyph   = "█"
	unfilledGlyph = "░"
)

// Bar is a single-line progress bar over a known number of files.
type Bar struct {
	w         io.Writer
	total     int
	current   int
	tagged    int
	label     string
	mu        sync.Mutex
	startTime time.Time
	lastDraw  time.Time
	done      bool
}

// New creates a progress bar that redraws itself on w.
func New(w io.Writer, total int) *Bar {
	now := time.Now()
	return &Bar{
		w:         w,
		total:     total,
		startTime: now,
		lastDraw:  now,
	}
}

// Advance records one finished file. tagged reports whether it ended with
// a genre; label is shown next to the counters.
func (b *Bar) Advance(label string, tagged bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current++
	if tagged {
		b.tagged++
	}
	b.label = label

	now := time.Now()
	if now.Sub(b.lastDraw) >= redrawEvery || b.current >= b.total {
		b.render()
		b.lastDraw = now
	}
}

// Finish draws the final state and ends the line. Safe to call twice.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return
	}
	b.label = ""
	b.render()
	fmt.Fprintln(b.w)
	b.done = true
}

func (b *Bar) render() {
	if b.done || b.total <= 0 {
		return
	}

	elapsed := time.Since(b.startTime)
	var eta time.Duration
	if b.current > 0 {
		eta = elapsed / time.Duration(b.current) * time.Duration(b.total-b.current)
	}

	filled := barWidth * b.current / b.total
	bar := strings.Repeat(filledGlyph, filled) + strings.Repeat(unfilledGlyph, barWidth-filled)

	fmt.Fprintf(b.w, "\r[%s] %d/%d tagged:%d - Elapsed: %s - ETA: %s %-*s",
		bar,
		b.current,
		b.total,
		b.tagged,
		formatDuration(elapsed),
		formatDuration(eta),
		labelWidth,
		truncate(b.label, labelWidth),
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
