package actor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// JobKind names the River queue/job-kind a DurableFront is registered
// under. River derives a job's routing kind by calling Kind() on a
// zero-value instance of its JobArgs type, so that string must be a
// compile-time constant of the type, not a per-instance field - a
// runtime field is always zero-valued when River constructs that probe
// instance, which would register every DurableFront worker under "".
// Each domain kind gets its own marker type implementing this.
type JobKind interface {
	JobKind() string
}

// payload is the River job args wrapper, grounded directly on the teacher's
// PayloadArgs[T]/jobWrapper[T] generic-job idiom (internal/queue/types.go),
// with the kind baked into the K type parameter instead of a runtime field.
type payload[T any, K JobKind] struct {
	Data T
}

func (p payload[T, K]) Kind() string {
	var k K
	return k.JobKind()
}

type worker[T any, K JobKind] struct {
	river.WorkerDefaults[payload[T, K]]
	handle func(ctx context.Context, data T) error
}

func (w *worker[T, K]) Work(ctx context.Context, job *river.Job[payload[T, K]]) error {
	return w.handle(ctx, job.Args.Data)
}

// DurableFront is the durable admission front-door spec.md §4.4/§4.6 asks
// for: River records that a task was admitted (for crash recovery and
// retry bookkeeping) while the in-memory Actor owns the actual
// admission-vs-queue-vs-drop state machine. Registering a kind's handler
// wires a River worker that simply forwards the payload into that kind's
// Actor.DoTask - the River job itself is considered "dispatched" once
// admitted to the actor, not once the side effect finishes; TaskResult
// events (success/failure/drop) are observed separately through the
// Actor's own event stream, not through River's job-completion bookkeeping.
// Grounded on internal/queue/river_queue.go's RiverQueue[T]. K fixes the
// River job kind for this front door at compile time (see JobKind); a
// DurableFront handles exactly one kind, matching River's own convention
// of one JobArgs type per worker registration.
type DurableFront[T any, K JobKind] struct {
	pool        *pgxpool.Pool
	workers     *river.Workers
	queueConfig river.QueueConfig
	client      *river.Client[pgx.Tx]
}

func NewDurableFront[T any, K JobKind](pool *pgxpool.Pool) *DurableFront[T, K] {
	return &DurableFront[T, K]{
		pool:    pool,
		workers: river.NewWorkers(),
	}
}

// RegisterKind wires K's durable queue to forward admitted jobs into
// actorDoTask (typically an Actor[T, R].DoTask bound as a method value).
func (d *DurableFront[T, K]) RegisterKind(concurrency int, actorDoTask func(T)) {
	d.queueConfig = river.QueueConfig{MaxWorkers: concurrency}
	river.AddWorker(d.workers, &worker[T, K]{handle: func(ctx context.Context, data T) error {
		actorDoTask(data)
		return nil
	}})
}

// Start brings up the underlying River client against pool, after K has
// been registered.
func (d *DurableFront[T, K]) Start(ctx context.Context) error {
	var k K
	client, err := river.NewClient(riverpgxv5.New(d.pool), &river.Config{
		Queues:  map[string]river.QueueConfig{k.JobKind(): d.queueConfig},
		Workers: d.workers,
	})
	if err != nil {
		return fmt.Errorf("start durable front: %w", err)
	}
	d.client = client
	return d.client.Start(ctx)
}

func (d *DurableFront[T, K]) Stop(ctx context.Context) error {
	return d.client.Stop(ctx)
}

// Enqueue durably records admission of a task under K's kind, for
// recovery if the daemon crashes before the in-memory Actor picks it up.
func (d *DurableFront[T, K]) Enqueue(ctx context.Context, data T) (string, error) {
	var k K
	result, err := d.client.Insert(ctx, payload[T, K]{Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", k.JobKind(), err)
	}
	return fmt.Sprint(result.Job.ID), nil
}
