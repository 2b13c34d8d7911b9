package utils

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestIsSupportedAudio(t *testing.T) {
	tests := map[string]bool{
		"song.mp3":         true,
		"SONG.MP3":         true,
		"album/track.flac": true,
		"track.FlAc":       true,
		"track.wav":        false,
		"track.m4a":        false,
		"cover.jpg":        false,
		"mp3":              false,
	}
	for path, want := range tests {
		assert.Equal(t, want, IsSupportedAudio(path), path)
	}
}

func TestFindAudioFiles_FlatVsRecursive(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.mp3"))
	touch(t, filepath.Join(dir, "a.flac"))
	touch(t, filepath.Join(dir, "skip.wav"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "x", "y", "deep.mp3"))
	touch(t, filepath.Join(dir, "x", "mid.FLAC"))
	touch(t, filepath.Join(dir, "c", "other.mp3"))

	flat, err := FindAudioFiles(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.flac"),
		filepath.Join(dir, "b.mp3"),
	}, flat)

	all, err := FindAudioFiles(dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.flac"),
		filepath.Join(dir, "b.mp3"),
		filepath.Join(dir, "c", "other.mp3"),
		filepath.Join(dir, "x", "mid.FLAC"),
		filepath.Join(dir, "x", "y", "deep.mp3"),
	}, all)
}

func TestFindAudioFiles_Errors(t *testing.T) {
	_, err := FindAudioFiles("", true)
	assert.Error(t, err)

	_, err = FindAudioFiles(filepath.Join(t.TempDir(), "missing"), true)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "a.mp3")
	touch(t, file)
	_, err = FindAudioFiles(file, true)
	assert.Error(t, err)
}

func TestFindAudioFiles_Empty(t *testing.T) {
	files, err := FindAudioFiles(t.TempDir(), true)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, time.Second, RetryAfter(h))

	h.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, RetryAfter(h))

	h.Set("Retry-After", "soon")
	assert.Equal(t, time.Second, RetryAfter(h))
}
