package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalogd/internal/catalog"
	"catalogd/internal/monitor"
)

func newTestScheduler() *Scheduler {
	return New(zap.NewNop(), monitor.New())
}

func TestStartAnyJobIfRequiredDispatchesOncePerKind(t *testing.T) {
	s := newTestScheduler()
	var calls int
	s.RegisterKind("thumbnail", func(ctx context.Context) (string, bool) {
		calls++
		return "job-1", true
	})

	s.startAnyJobIfRequired(context.Background())
	require.Equal(t, 1, calls)
	require.Equal(t, "job-1", s.runningKind["thumbnail"])

	// Already running: Starter must not be consulted again.
	s.startAnyJobIfRequired(context.Background())
	require.Equal(t, 1, calls)
}

func TestJobCompleteFreesKindForRedispatch(t *testing.T) {
	s := newTestScheduler()
	jobs := []string{"job-1", "job-2"}
	var i int
	s.RegisterKind("thumbnail", func(ctx context.Context) (string, bool) {
		id := jobs[i]
		i++
		return id, true
	})

	s.startAnyJobIfRequired(context.Background())
	require.Equal(t, "job-1", s.runningKind["thumbnail"])

	s.completeJob("job-1", false)
	require.NotContains(t, s.runningKind, "thumbnail")

	s.startAnyJobIfRequired(context.Background())
	require.Equal(t, "job-2", s.runningKind["thumbnail"])
}

func TestIndexingIsKeyedPerRoot(t *testing.T) {
	s := newTestScheduler()
	var dispatched []catalog.AssetRootID
	s.RegisterIndexing(func(ctx context.Context, root catalog.AssetRootID) (string, bool) {
		dispatched = append(dispatched, root)
		return fmt.Sprintf("job-root-%d", root), true
	}, []catalog.AssetRootID{1, 2})

	s.startAnyJobIfRequired(context.Background())
	require.ElementsMatch(t, []catalog.AssetRootID{1, 2}, dispatched)
	require.Len(t, s.runningRoot, 2) // one running indexing job per root

	s.completeJob("job-root-1", false)
	s.completeJob("job-root-2", false)
	require.Empty(t, s.runningRoot)
}

func TestRunProcessesSubmittedEventsUntilCancelled(t *testing.T) {
	s := newTestScheduler()
	started := make(chan struct{}, 4)
	s.RegisterKind("thumbnail", func(ctx context.Context) (string, bool) {
		select {
		case started <- struct{}{}:
		default:
		}
		return "", false
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.Submit(Event{Kind: EventTimer})

	// One Starter call for the cold-start check, one for the submitted EventTimer.
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("Run never consulted the registered Starter")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
