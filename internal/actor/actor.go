// Package actor implements the bounded-queue worker state machine spec.md
// §4.4 requires: one abstract Actor[T, R] instantiated once per operation
// kind (thumbnailing, image conversion, video packaging, indexing). All
// cross-actor communication is message passing over channels - no actor
// shares mutable state by reference with another (spec.md §8). Grounded on
// the teacher's internal/utils/errgroup.FaultTolerantGroup fan-out idiom,
// generalized from "run everything, collect errors" into a long-lived loop
// that respects max_tasks/max_queue_size admission control, plus the
// golang.org/x/sync/semaphore bounded-concurrency pattern used in the
// pack's Erigon donor repo for the active-task cap.
package actor

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Event is the closed sum of outbound actor events.
type Event interface {
	isEvent()
}

// ActivityChange reports a transition in the actor's running/active/queued
// state.
type ActivityChange struct {
	IsRunning bool
	Active    int
	Queued    int
}

func (ActivityChange) isEvent() {}

// DroppedMessage reports that DoTask was rejected because both the active
// set and the queue were full (spec.md §4.4 backpressure policy: drop, do
// not block).
type DroppedMessage struct{}

func (DroppedMessage) isEvent() {}

// TaskResult is emitted once for each task the actor starts, carrying
// either a value or an error (cancellation included). Tasks still queued
// when Shutdown is called are discarded without a TaskResult.
type TaskResult[R any] struct {
	Value R
	Err   error
}

func (TaskResult[R]) isEvent() {}

// Run is the function an actor invokes for each admitted task. It must
// honor ctx cancellation (Shutdown/PauseAll broadcast through it) - spec.md
// §4.4's "tasks poll their control channel between steps".
type Run[T any, R any] func(ctx context.Context, task T) (R, error)

// command is the actor's inbound message sum.
type command[T any] struct {
	kind     commandKind
	task     T
	doneOnce chan struct{} // closed when Shutdown has fully drained, nil otherwise
}

type commandKind int

const (
	cmdDoTask commandKind = iota
	cmdPauseAll
	cmdResumeAll
	cmdShutdown
)

// Actor runs at most maxTasks instances of run concurrently, queuing up to
// maxQueueSize pending tasks and dropping anything beyond that (spec.md
// §4.4). Events is a buffered channel (capacity maxQueueSize*2+8, set at
// construction); when it is full, the actor loop blocks on the send until a
// consumer drains it.
type Actor[T any, R any] struct {
	run     Run[T, R]
	maxTask int

	commands chan command[T]
	events   chan Event

	sem *semaphore.Weighted

	mu        sync.Mutex
	running   bool
	active    int
	queue     []T
	cancel    context.CancelFunc // broadcasts Pause/Shutdown to in-flight tasks
	rootCtx   context.Context
	shutdownC chan struct{}
}

// New starts an actor's message loop in a background goroutine and returns
// it running. maxQueueSize bounds the events channel too, generously, so
// the loop never blocks on a slow observer for long before a consumer
// catches up; events are meant to be drained promptly by the monitor.
func New[T any, R any](run Run[T, R], maxTasks, maxQueueSize int) *Actor[T, R] {
	rootCtx, cancel := context.WithCancel(context.Background())
	a := &Actor[T, R]{
		run:       run,
		maxTask:   maxTasks,
		commands:  make(chan command[T], maxQueueSize+4),
		events:    make(chan Event, maxQueueSize*2+8),
		sem:       semaphore.NewWeighted(int64(maxTasks)),
		running:   true,
		rootCtx:   rootCtx,
		cancel:    cancel,
		shutdownC: make(chan struct{}),
	}
	go a.loop(maxQueueSize)
	return a
}

// Events returns the outbound event stream; the monitor consumes it.
func (a *Actor[T, R]) Events() <-chan Event { return a.events }

// DoTask submits a task for admission per spec.md §4.4's DoTask rule.
func (a *Actor[T, R]) DoTask(task T) {
	a.commands <- command[T]{kind: cmdDoTask, task: task}
}

func (a *Actor[T, R]) PauseAll()  { a.commands <- command[T]{kind: cmdPauseAll} }
func (a *Actor[T, R]) ResumeAll() { a.commands <- command[T]{kind: cmdResumeAll} }

// Shutdown broadcasts cancellation to every in-flight task and blocks until
// active reaches zero (spec.md §4.4).
func (a *Actor[T, R]) Shutdown() {
	done := make(chan struct{})
	a.commands <- command[T]{kind: cmdShutdown, doneOnce: done}
	<-done
}

func (a *Actor[T, R]) loop(maxQueueSize int) {
	resultCh := make(chan TaskResult[R])
	var shutdownWaiters []chan struct{}
	waitingForShutdown := false

	emitActivity := func() {
		a.mu.Lock()
		ev := ActivityChange{IsRunning: a.running, Active: a.active, Queued: len(a.queue)}
		a.mu.Unlock()
		a.events <- ev
	}

	dequeueUpTo := func(n int) {
		a.mu.Lock()
		for n > 0 && len(a.queue) > 0 {
			t := a.queue[0]
			a.queue = a.queue[1:]
			a.active++
			a.mu.Unlock()
			a.spawn(t, resultCh)
			n--
			a.mu.Lock()
		}
		a.mu.Unlock()
	}

	for {
		select {
		case cmd := <-a.commands:
			switch cmd.kind {
			case cmdDoTask:
				a.mu.Lock()
				switch {
				case a.running && a.active < a.maxTask:
					a.active++
					a.mu.Unlock()
					a.spawn(cmd.task, resultCh)
					emitActivity()
				case len(a.queue) < maxQueueSize:
					a.queue = append(a.queue, cmd.task)
					a.mu.Unlock()
					emitActivity()
				default:
					a.mu.Unlock()
					a.events <- DroppedMessage{}
				}

			case cmdPauseAll:
				a.mu.Lock()
				if a.running {
					a.cancel() // cooperative: in-flight tasks observe ctx.Done and pause/abort
					rootCtx, cancel := context.WithCancel(context.Background())
					a.rootCtx, a.cancel = rootCtx, cancel
					a.running = false
				}
				a.mu.Unlock()
				emitActivity()

			case cmdResumeAll:
				a.mu.Lock()
				wasPaused := !a.running
				a.running = true
				room := a.maxTask - a.active
				a.mu.Unlock()
				if wasPaused && room > 0 {
					dequeueUpTo(room)
				}
				emitActivity()

			case cmdShutdown:
				a.mu.Lock()
				a.cancel()
				a.running = false
				active := a.active
				a.mu.Unlock()
				waitingForShutdown = true
				if active == 0 {
					close(cmd.doneOnce)
					emitActivity()
					return
				}
				shutdownWaiters = append(shutdownWaiters, cmd.doneOnce)
				emitActivity()
			}

		case res := <-resultCh:
			a.events <- res

			a.mu.Lock()
			a.active--
			active := a.active
			running := a.running
			room := a.maxTask - active
			a.mu.Unlock()

			if waitingForShutdown && active == 0 {
				for _, w := range shutdownWaiters {
					close(w)
				}
				shutdownWaiters = nil
				emitActivity()
				return
			}
			if running && room > 0 {
				dequeueUpTo(room)
			}
			emitActivity()
		}
	}
}

// spawn runs one task under the actor's semaphore, on its own goroutine, so
// a slow task never blocks the command loop from servicing other actors'
// work or control messages.
func (a *Actor[T, R]) spawn(task T, resultCh chan<- TaskResult[R]) {
	a.mu.Lock()
	ctx := a.rootCtx
	a.mu.Unlock()

	if err := a.sem.Acquire(context.Background(), 1); err != nil {
		resultCh <- TaskResult[R]{Err: err}
		return
	}
	go func() {
		defer a.sem.Release(1)
		value, err := a.run(ctx, task)
		resultCh <- TaskResult[R]{Value: value, Err: err}
	}()
}
