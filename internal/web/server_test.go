package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"genretag/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTagger writes an executable shell script that stands in for the
// tagger binary.
func fakeTagger(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := filepath.Join(t.TempDir(), "genretag")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

const taggerOutput = `
echo "Spotify: enabled"
echo ""
echo "Found: $3/a.mp3"
echo "  Genre found via Spotify: Rock"
echo "[WARN] something odd" >&2
echo "Found: $3/sub/b.flac"
echo "Report written to: $3/genre_report.txt"
`

func newTestServer(t *testing.T, binary string) (*httptest.Server, *JobManager) {
	t.Helper()
	jm := NewJobManager()
	srv := NewServer(context.Background(), jm, NewRunner(binary), logger.NewWithWriter(&bytes.Buffer{}, false))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, jm
}

func postJob(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/jobs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func waitDone(t *testing.T, jm *JobManager, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		j, err := jm.GetJob(id)
		job = j
		return err == nil && j.Status.Done()
	}, 5*time.Second, 20*time.Millisecond)
	return job
}

func TestCreateJob_RunsTagger(t *testing.T) {
	ts, jm := newTestServer(t, fakeTagger(t, taggerOutput))

	resp := postJob(t, ts, `{"path": "/music", "dry_run": true}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created JobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	job := waitDone(t, jm, created.ID)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 2, job.Progress)
	assert.Equal(t, "b.flac", job.CurrentFile)
	assert.Equal(t, []string{
		"Spotify: enabled",
		"Found: /music/a.mp3",
		"  Genre found via Spotify: Rock",
		"[WARN] something odd",
		"Found: /music/sub/b.flac",
		"Report written to: /music/genre_report.txt",
	}, job.Log)

	logResp, err := http.Get(ts.URL + "/api/jobs/" + created.ID + "/log")
	require.NoError(t, err)
	defer logResp.Body.Close()
	var lr LogResponse
	require.NoError(t, json.NewDecoder(logResp.Body).Decode(&lr))
	assert.Len(t, lr.Lines, 6)
}

func TestCreateJob_FailedExit(t *testing.T) {
	ts, jm := newTestServer(t, fakeTagger(t, "echo \"[ERROR] The specified path does not exist\" >&2\nexit 1\n"))

	var created JobResponse
	require.NoError(t, json.NewDecoder(postJob(t, ts, `{"path": "/missing"}`).Body).Decode(&created))

	job := waitDone(t, jm, created.ID)
	assert.Equal(t, StatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
	assert.Equal(t, []string{"[ERROR] The specified path does not exist"}, job.Log)
}

func TestCreateJob_Validation(t *testing.T) {
	ts, _ := newTestServer(t, "/nonexistent")

	assert.Equal(t, http.StatusBadRequest, postJob(t, ts, `not json`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, postJob(t, ts, `{"path": "  "}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, postJob(t, ts, `{"path": "/m", "disable": ["napster"]}`).StatusCode)
}

func TestGetJob_NotFound(t *testing.T) {
	ts, _ := newTestServer(t, "/nonexistent")

	for _, path := range []string{"/api/jobs/nope", "/api/jobs/nope/log"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestListJobs(t *testing.T) {
	ts, jm := newTestServer(t, "/nonexistent")
	jm.CreateJob(JobRequest{Path: "/a"})

	resp, err := http.Get(ts.URL + "/api/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()

	var jobs []JobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "/a", jobs[0].Path)
	assert.Equal(t, StatusPending, jobs[0].Status)
}

func TestCancelJob(t *testing.T) {
	script := `trap 'echo "interrupted"; exit 130' INT
echo "Found: $2/a.mp3"
sleep 5 >/dev/null 2>&1 &
wait
`
	ts, jm := newTestServer(t, fakeTagger(t, script))

	var created JobResponse
	require.NoError(t, json.NewDecoder(postJob(t, ts, `{"path": "/music"}`).Body).Decode(&created))

	require.Eventually(t, func() bool {
		j, _ := jm.GetJob(created.ID)
		return j.Progress == 1
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(ts.URL+"/api/jobs/"+created.ID+"/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	job := waitDone(t, jm, created.ID)
	assert.Equal(t, StatusCancelled, job.Status)

	resp, err = http.Post(ts.URL+"/api/jobs/"+created.ID+"/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWebSocket_FinishedJobSendsSnapshot(t *testing.T) {
	ts, jm := newTestServer(t, "/nonexistent")
	job := jm.CreateJob(JobRequest{Path: "/a"})
	jm.AppendLine(job.ID, "Found: /a/x.mp3")
	jm.UpdateJob(job.ID, func(j *Job) { j.Status = StatusCompleted })

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?job_id=" + job.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, StatusCompleted, msg.Job.Status)
	assert.Equal(t, 1, msg.Job.Progress)
	assert.Equal(t, "x.mp3", msg.Job.CurrentFile)
}

func TestWebSocket_BurstEndsWithFinalStatus(t *testing.T) {
	ts, jm := newTestServer(t, "/nonexistent")
	job := jm.CreateJob(JobRequest{Path: "/a"})
	jm.UpdateJob(job.ID, func(j *Job) { j.Status = StatusRunning })

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?job_id=" + job.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, StatusRunning, msg.Job.Status)

	for i := 0; i < 500; i++ {
		jm.AppendLine(job.ID, "Found: /a/x.mp3")
	}
	jm.UpdateJob(job.ID, func(j *Job) { j.Status = StatusCompleted })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var last wsMessage
	for {
		var msg wsMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected read error: %v", err)
			break
		}
		last = msg
	}
	require.NotNil(t, last.Job)
	assert.Equal(t, StatusCompleted, last.Job.Status)
	assert.Equal(t, 500, last.Job.Progress)
}

func TestWebSocket_MissingJob(t *testing.T) {
	ts, _ := newTestServer(t, "/nonexistent")

	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunnerArgs(t *testing.T) {
	r := NewRunner("genretag")
	no := false

	args, err := r.Args(JobRequest{Path: "/m", Recursive: &no, Disable: []string{"spotify", "discogs"}, DryRun: true, Report: "/tmp/r.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--no-recurse", "--no-spotify", "--no-discogs", "--dry-run", "--report", "/tmp/r.txt", "--", "/m"}, args)

	args, err = r.Args(JobRequest{Path: "-weird"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--", "-weird"}, args)
}
