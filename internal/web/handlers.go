package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

type JobResponse struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	CurrentFile string    `json:"current_file,omitempty"`
	Lines       int       `json:"lines"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   string    `json:"created_at"`
	StartedAt   *string   `json:"started_at,omitempty"`
	CompletedAt *string   `json:"completed_at,omitempty"`
}

type LogResponse struct {
	ID    string   `json:"id"`
	Lines []string `json:"lines"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Path = strings.TrimSpace(req.Path)
	if _, err := s.runner.Args(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobMgr.CreateJob(req)
	s.logger.Info("Created job %s for %s", job.ID, req.Path)

	go s.processJob(job.ID)

	writeJSON(w, http.StatusAccepted, jobToResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobMgr.ListJobs()
	responses := make([]*JobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = jobToResponse(job)
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobMgr.GetJob(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, jobToResponse(job))
}

func (s *Server) handleJobLog(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobMgr.GetJob(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	lines := job.Log
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, LogResponse{ID: job.ID, Lines: lines})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.jobMgr.GetJob(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if job.Status.Done() {
		http.Error(w, "Job already finished", http.StatusConflict)
		return
	}

	s.jobMgr.UpdateJob(id, func(j *Job) {
		if j.Cancel != nil {
			j.Cancel()
		}
		j.Status = StatusCancelled
	})
	s.logger.Info("Cancelled job %s", id)

	writeJSON(w, http.StatusOK, map[string]string{"status": string(StatusCancelled)})
}

func (s *Server) processJob(id string) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var req JobRequest
	var cancelled bool
	s.jobMgr.UpdateJob(id, func(j *Job) {
		req = j.Request
		if j.Status == StatusCancelled {
			cancelled = true
			return
		}
		j.Cancel = cancel
		j.Status = StatusRunning
	})
	if cancelled {
		return
	}

	s.logger.Info("Starting job %s", id)

	err := s.runner.Run(ctx, req, func(line string) {
		s.jobMgr.AppendLine(id, line)
	})

	s.jobMgr.UpdateJob(id, func(j *Job) {
		j.Cancel = nil
		switch {
		case j.Status == StatusCancelled:
		case errors.Is(ctx.Err(), context.Canceled):
			j.Status = StatusCancelled
		case err != nil:
			j.Status = StatusFailed
			j.Error = err.Error()
		default:
			j.Status = StatusCompleted
		}
	})

	if err != nil {
		s.logger.Warn("Job %s ended: %v", id, err)
		return
	}
	s.logger.Info("Job %s completed successfully", id)
}

func jobToResponse(job Job) *JobResponse {
	resp := &JobResponse{
		ID:          job.ID,
		Path:        job.Request.Path,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentFile: job.CurrentFile,
		Lines:       len(job.Log),
		Error:       job.Error,
		CreatedAt:   job.CreatedAt.Format(time.DateTime),
	}

	if job.StartedAt != nil {
		started := job.StartedAt.Format(time.DateTime)
		resp.StartedAt = &started
	}

	if job.CompletedAt != nil {
		completed := job.CompletedAt.Format(time.DateTime)
		resp.CompletedAt = &completed
	}

	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
