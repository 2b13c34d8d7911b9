package web

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"genretag/internal/logger"

	"github.com/google/uuid"
)

// JobStatus represents the current status of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Done reports whether the status is final.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// JobRequest describes one tagger run.
type JobRequest struct {
	Path      string   `json:"path"`
	Recursive *bool    `json:"recursive,omitempty"`
	Disable   []string `json:"disable,omitempty"`
	DryRun    bool     `json:"dry_run"`
	Report    string   `json:"report,omitempty"`
}

// Job is one tagger subprocess and what it has printed so far.
type Job struct {
	ID          string
	Request     JobRequest
	Status      JobStatus
	Progress    int
	CurrentFile string
	Log         []string
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Cancel      context.CancelFunc
}

// Update is sent to subscribers after every change. Line is set when the
// change was a new output line.
type Update struct {
	Job  Job
	Line string
}

// JobManager manages tagger jobs
type JobManager struct {
	jobs      map[string]*Job
	mu        sync.RWMutex
	listeners map[string][]chan Update
}

const jobRetention = 1 * time.Hour

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:      make(map[string]*Job),
		listeners: make(map[string][]chan Update),
	}
}

// StartCleanup starts a background goroutine that removes old completed jobs.
// Stops when ctx is cancelled.
func (jm *JobManager) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				jm.cleanup()
			}
		}
	}()
}

func (jm *JobManager) cleanup() {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cutoff := time.Now().Add(-jobRetention)
	for id, job := range jm.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(jm.jobs, id)
			for _, ch := range jm.listeners[id] {
				close(ch)
			}
			delete(jm.listeners, id)
		}
	}
}

// CreateJob registers a pending job for req.
func (jm *JobManager) CreateJob(req JobRequest) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	jm.jobs[job.ID] = job
	return *job
}

// GetJob returns a snapshot of the job.
func (jm *JobManager) GetJob(id string) (Job, error) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, ok := jm.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job not found: %s", id)
	}
	return *job, nil
}

// ListJobs returns snapshots of all jobs, oldest first.
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
	return jobs
}

// UpdateJob applies fn to the job and notifies subscribers.
func (jm *JobManager) UpdateJob(id string, fn func(*Job)) error {
	return jm.update(id, "", fn)
}

// AppendLine records one line of tagger output. Blank lines are dropped.
// A Found line advances Progress and sets CurrentFile to the file's base
// name.
func (jm *JobManager) AppendLine(id, line string) error {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil
	}

	return jm.update(id, line, func(j *Job) {
		if path, ok := foundPath(line); ok {
			j.Progress++
			if path != "" {
				j.CurrentFile = filepath.Base(path)
			}
		}
		j.Log = append(j.Log, line)
	})
}

func (jm *JobManager) update(id, line string, fn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, ok := jm.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}

	oldStatus := job.Status
	fn(job)

	if oldStatus != job.Status {
		switch job.Status {
		case StatusRunning:
			if job.StartedAt == nil {
				now := time.Now()
				job.StartedAt = &now
			}
		case StatusCompleted, StatusFailed, StatusCancelled:
			if job.CompletedAt == nil {
				now := time.Now()
				job.CompletedAt = &now
			}
		}
	}

	jm.notifyListeners(id, Update{Job: *job, Line: line})
	return nil
}

// Subscribe subscribes to job updates
func (jm *JobManager) Subscribe(jobID string) <-chan Update {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	ch := make(chan Update, 64)
	jm.listeners[jobID] = append(jm.listeners[jobID], ch)
	return ch
}

// Unsubscribe removes a listener
func (jm *JobManager) Unsubscribe(jobID string, ch <-chan Update) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	listeners := jm.listeners[jobID]
	for i, listener := range listeners {
		if listener == ch {
			jm.listeners[jobID] = append(listeners[:i], listeners[i+1:]...)
			close(listener)
			break
		}
	}
}

// notifyListeners sends updates to all listeners. A listener whose buffer
// is full loses its oldest pending update so the newest one always lands.
// Once the job is done the listeners are closed after the final update.
func (jm *JobManager) notifyListeners(jobID string, u Update) {
	listeners := jm.listeners[jobID]
	for _, ch := range listeners {
		for sent := false; !sent; {
			select {
			case ch <- u:
				sent = true
			default:
				select {
				case <-ch:
				default:
				}
			}
		}
	}

	if u.Job.Status.Done() {
		for _, ch := range listeners {
			close(ch)
		}
		delete(jm.listeners, jobID)
	}
}

// foundPath extracts the path from a progress line, which starts with
// "Found:". Other lines may contain the marker inside a path or genre.
func foundPath(line string) (string, bool) {
	if !strings.HasPrefix(line, logger.FoundMarker) {
		return "", false
	}
	return strings.TrimSpace(line[len(logger.FoundMarker):]), true
}
