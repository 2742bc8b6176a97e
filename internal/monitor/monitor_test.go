package monitor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	m := New()
	m.Register("job-1", "thumbnail")

	rec, ok := m.Get("job-1")
	require.True(t, ok)
	require.Equal(t, StatusRunning, rec.Status)
	require.Equal(t, "thumbnail", rec.Kind)
}

func TestCompleteSetsStatusAndProgress(t *testing.T) {
	m := New()
	m.Register("job-1", "thumbnail")
	m.Complete("job-1")

	rec, ok := m.Get("job-1")
	require.True(t, ok)
	require.Equal(t, StatusComplete, rec.Status)
	require.Equal(t, 1.0, rec.Progress)
}

func TestFailSetsErrorMessage(t *testing.T) {
	m := New()
	m.Register("job-1", "thumbnail")
	m.Fail("job-1", errors.New("encode failed"))

	rec, ok := m.Get("job-1")
	require.True(t, ok)
	require.Equal(t, StatusFailed, rec.Status)
	require.Equal(t, "encode failed", rec.Err)
}

func TestRunningOfKind(t *testing.T) {
	m := New()
	require.False(t, m.RunningOfKind("thumbnail"))

	m.Register("job-1", "thumbnail")
	require.True(t, m.RunningOfKind("thumbnail"))
	require.False(t, m.RunningOfKind("video_packaging"))

	m.Complete("job-1")
	require.False(t, m.RunningOfKind("thumbnail"))
}

func TestRemove(t *testing.T) {
	m := New()
	m.Register("job-1", "thumbnail")
	m.Remove("job-1")

	_, ok := m.Get("job-1")
	require.False(t, ok)
}

func TestUnknownJobUpdatesAreNoops(t *testing.T) {
	m := New()
	m.Progress("missing", 0.5)
	m.Complete("missing")
	m.Fail("missing", errors.New("x"))

	_, ok := m.Get("missing")
	require.False(t, ok)
}
