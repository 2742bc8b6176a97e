package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func drainResult(t *testing.T, a *Actor[int, int], timeout time.Duration) TaskResult[int] {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-a.Events():
			if res, ok := ev.(TaskResult[int]); ok {
				return res
			}
		case <-deadline:
			t.Fatal("timed out waiting for a TaskResult")
		}
	}
}

func TestDoTaskRunsAndEmitsResult(t *testing.T) {
	run := func(ctx context.Context, n int) (int, error) { return n * 2, nil }
	a := New(run, 2, 4)
	defer a.Shutdown()

	a.DoTask(21)
	res := drainResult(t, a, time.Second)
	require.NoError(t, res.Err)
	require.Equal(t, 42, res.Value)
}

func TestDoTaskDropsBeyondQueueCapacity(t *testing.T) {
	block := make(chan struct{})
	run := func(ctx context.Context, n int) (int, error) {
		<-block
		return n, nil
	}
	a := New(run, 1, 1) // 1 active + 1 queued = 2 admitted before drop
	defer func() {
		close(block)
		a.Shutdown()
	}()

	a.DoTask(1) // runs immediately
	a.DoTask(2) // queued
	a.DoTask(3) // dropped: active full, queue full

	deadline := time.After(time.Second)
	var dropped bool
	for !dropped {
		select {
		case ev := <-a.Events():
			if _, ok := ev.(DroppedMessage); ok {
				dropped = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for DroppedMessage")
		}
	}
}

func TestShutdownWaitsForInFlightTasks(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	run := func(ctx context.Context, n int) (int, error) {
		close(started)
		<-release
		return n, nil
	}
	a := New(run, 1, 1)
	a.DoTask(1)
	<-started

	done := make(chan struct{})
	go func() {
		a.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Shutdown returned before the in-flight task finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return after the task finished")
	}
}

func TestPauseAllCancelsRunningTaskContext(t *testing.T) {
	cancelled := make(chan struct{})
	run := func(ctx context.Context, n int) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return n, ctx.Err()
	}
	a := New(run, 1, 1)
	defer a.Shutdown()

	a.DoTask(1)
	// give the task a moment to start before pausing
	time.Sleep(20 * time.Millisecond)
	a.PauseAll()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("PauseAll never cancelled the in-flight task's context")
	}
}
