// Package scheduler is the single coordinator spec.md §4.6 describes: a
// single-threaded event loop that reacts to timer ticks, filesystem
// changes, user requests, job completions, and config changes, consults
// the rules engine, and dispatches operations to the right actor while
// enforcing "at most one job of a given kind in flight" (indexing
// additionally keyed per AssetRoot). Grounded on the teacher's single
// river.Client wiring in internal/queue/queue_setup.go, generalized from
// "configure queues once at startup" into an explicit event loop owning a
// running_jobs map.
package scheduler

import (
	"context"

	"go.uber.org/zap"

	"catalogd/internal/catalog"
	"catalogd/internal/monitor"
)

// EventKind is the closed set of scheduler inputs spec.md §4.6 names.
type EventKind int

const (
	EventTimer EventKind = iota
	EventFileSystemChange
	EventReindexAssetRoot
	EventJobRegistered
	EventJobComplete
	EventJobFailed
	EventConfigChange
)

// Event is the scheduler's single inbound message type; only the fields
// relevant to Kind are populated.
type Event struct {
	Kind    EventKind
	Paths   []string
	RootID  catalog.AssetRootID
	JobID   string
	JobKind string
}

// Starter consults the rules engine for one job kind and, if there is work
// to do, dispatches it onto that kind's actor and returns the dispatched
// job's id. Returns started=false when the rules function returned no
// operations.
type Starter func(ctx context.Context) (jobID string, started bool)

// IndexStarter is Starter's per-AssetRoot analogue for the indexing job
// kind, which is additionally keyed by root (spec.md §4.6: "multiple roots
// can be indexed concurrently but the same root cannot be indexed twice
// concurrently").
type IndexStarter func(ctx context.Context, root catalog.AssetRootID) (jobID string, started bool)

// Scheduler owns running_jobs and the event loop. Construct with New, wire
// every kind's Starter via RegisterKind/RegisterIndexing, then call Run in
// its own goroutine.
type Scheduler struct {
	log     *zap.Logger
	mon     *monitor.Monitor
	events  chan Event

	kinds    []string
	starters map[string]Starter

	indexStarter IndexStarter
	roots        []catalog.AssetRootID

	runningKind map[string]string                // kind -> job id
	runningRoot map[catalog.AssetRootID]string    // root -> job id
	jobKind     map[string]string                 // job id -> kind, for O(1) reverse lookup on completion
	jobRoot     map[string]catalog.AssetRootID    // job id -> root, when the job is an indexing job
}

func New(log *zap.Logger, mon *monitor.Monitor) *Scheduler {
	return &Scheduler{
		log:         log.Named("scheduler"),
		mon:         mon,
		events:      make(chan Event, 64),
		starters:    make(map[string]Starter),
		runningKind: make(map[string]string),
		runningRoot: make(map[catalog.AssetRootID]string),
		jobKind:     make(map[string]string),
		jobRoot:     make(map[string]catalog.AssetRootID),
	}
}

// RegisterKind wires a non-indexing job kind's rules-consulting starter.
func (s *Scheduler) RegisterKind(kind string, start Starter) {
	s.kinds = append(s.kinds, kind)
	s.starters[kind] = start
}

// RegisterIndexing wires the indexing job kind plus the set of AssetRoots
// it must be evaluated against (spec.md §4.9/§4.6: an indexing job is
// dispatched per-root, not once globally).
func (s *Scheduler) RegisterIndexing(start IndexStarter, roots []catalog.AssetRootID) {
	s.indexStarter = start
	s.roots = roots
}

// Submit enqueues an event for the loop to process. Safe to call from any
// goroutine (e.g. a filesystem watcher or an HTTP handler, both out of the
// core's scope but plausible future callers).
func (s *Scheduler) Submit(ev Event) {
	s.events <- ev
}

// Run processes events until ctx is cancelled. Intended to run in its own
// goroutine for the life of the daemon.
func (s *Scheduler) Run(ctx context.Context) {
	s.startAnyJobIfRequired(ctx) // cold-start: dispatch indexing for every root, re-evaluate every kind

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventTimer, EventConfigChange:
		s.startAnyJobIfRequired(ctx)

	case EventFileSystemChange:
		// A partial index is, in this core, the same dispatch as a full
		// rescan: re-evaluating indexing for every root already skips
		// unchanged paths via AssetOrDuplicateWithPathExists.
		s.startAnyJobIfRequired(ctx)

	case EventReindexAssetRoot:
		if _, running := s.runningRoot[ev.RootID]; running {
			s.log.Debug("reindex already in flight, ignoring", zap.Int64("root_id", int64(ev.RootID)))
			return
		}
		s.startIndexing(ctx, ev.RootID)

	case EventJobRegistered:
		s.mon.Register(ev.JobID, ev.JobKind)

	case EventJobComplete, EventJobFailed:
		s.completeJob(ev.JobID, ev.Kind == EventJobFailed)
		s.startAnyJobIfRequired(ctx)
	}
}

func (s *Scheduler) completeJob(jobID string, failed bool) {
	kind, ok := s.jobKind[jobID]
	if ok {
		delete(s.jobKind, jobID)
		if s.runningKind[kind] == jobID {
			delete(s.runningKind, kind)
		}
	}
	if root, ok := s.jobRoot[jobID]; ok {
		delete(s.jobRoot, jobID)
		if s.runningRoot[root] == jobID {
			delete(s.runningRoot, root)
		}
	}
	if failed {
		s.mon.Fail(jobID, nil)
	} else {
		s.mon.Complete(jobID)
	}
}

// startAnyJobIfRequired implements spec.md §4.6: for each actor kind, if no
// job of that kind is running, consult its rules function via Starter; if
// it dispatched work, record the job id. Indexing is evaluated once per
// AssetRoot instead of once globally.
func (s *Scheduler) startAnyJobIfRequired(ctx context.Context) {
	for _, kind := range s.kinds {
		if _, running := s.runningKind[kind]; running {
			continue
		}
		start := s.starters[kind]
		jobID, started := start(ctx)
		if !started {
			continue
		}
		s.runningKind[kind] = jobID
		s.jobKind[jobID] = kind
		s.mon.Register(jobID, kind)
	}

	if s.indexStarter == nil {
		return
	}
	for _, root := range s.roots {
		if _, running := s.runningRoot[root]; running {
			continue
		}
		s.startIndexing(ctx, root)
	}
}

func (s *Scheduler) startIndexing(ctx context.Context, root catalog.AssetRootID) {
	jobID, started := s.indexStarter(ctx, root)
	if !started {
		return
	}
	s.runningRoot[root] = jobID
	s.jobRoot[jobID] = root
	s.mon.Register(jobID, "indexing")
}
