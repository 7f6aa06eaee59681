package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/copyleftdev/sablcheck/internal/artifact"
	"github.com/copyleftdev/sablcheck/internal/browser/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "winners-crud_7_failed.png", artifact.FileName("winners-crud", 7, artifact.OutcomeFailed))
	assert.Equal(t, "public-pages_-1_timed_out.png", artifact.FileName("public-pages", -1, artifact.OutcomeTimedOut))
	assert.Equal(t, "my-scenario-x_0_step.png", artifact.FileName("my scenario/x", 0, artifact.OutcomeStep))
}

func TestCaptureWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	rec := artifact.NewRecorder(dir, true, nil)
	page := mocks.NewMockSession()

	path := rec.Capture(context.Background(), page, "login", 3, artifact.OutcomePassed)
	require.Equal(t, filepath.Join(dir, "login_3_passed.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mocks.PNG, data)

	// Capturing the same step again overwrites the same file.
	again := rec.Capture(context.Background(), page, "login", 3, artifact.OutcomePassed)
	assert.Equal(t, path, again)
	assert.Equal(t, 2, page.Screenshots)
}

func TestCaptureFailureIsSwallowed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := artifact.NewRecorder(t.TempDir(), false, zap.New(core))
	page := mocks.NewMockSession()
	page.ScreenshotErr = errors.New("target crashed")

	path := rec.Capture(context.Background(), page, "gallery-crud", 2, artifact.OutcomeFailed)
	assert.Empty(t, path)

	entries := logs.FilterMessage("screenshot capture failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "CaptureFailed")
	assert.Equal(t, "gallery-crud", entries[0].ContextMap()["scenario"])
}

func TestCaptureUnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	rec := artifact.NewRecorder(filepath.Join(blocker, "sub"), false, nil)

	assert.Empty(t, rec.Capture(context.Background(), mocks.NewMockSession(), "login", 0, artifact.OutcomePassed))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	rec := artifact.NewRecorder(dir, false, nil)
	path := rec.Capture(context.Background(), mocks.NewMockSession(), "login", 1, artifact.OutcomeStep)
	require.NotEmpty(t, path)

	f, err := rec.Open(filepath.Base(path))
	require.NoError(t, err)
	f.Close()

	for _, name := range []string{"", "..", "../etc/passwd", "a/b.png"} {
		_, err := rec.Open(name)
		assert.Error(t, err, name)
	}
}
