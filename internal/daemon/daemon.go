// Package daemon is the composition root: it wires config, the catalog
// store, storage provider, process runners, and the rules/operation/actor/
// scheduler/monitor core into one running process. Grounded on the
// teacher's cmd/worker/main.go, generalized from "one queue, one handler"
// into "one Actor per operation kind plus a scheduler that decides when to
// feed them" (spec.md §4.4/§4.6).
package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"catalogd/config"
	"catalogd/internal/actor"
	"catalogd/internal/catalog"
	"catalogd/internal/indexing"
	"catalogd/internal/monitor"
	"catalogd/internal/operation"
	"catalogd/internal/rules"
	"catalogd/internal/runner"
	"catalogd/internal/scheduler"
	"catalogd/internal/storage"
)

// thumbnailJobKind fixes the River job kind for the durable admission
// front door at compile time (actor.JobKind) rather than as a runtime
// field, since River identifies a worker's kind by calling Kind() on a
// zero-value instance of its JobArgs type.
type thumbnailJobKind struct{}

func (thumbnailJobKind) JobKind() string { return "thumbnail" }

// taskEnvelope tags an operation with the scheduler job it was dispatched
// as part of, since Actor.TaskResult carries no identity of its own
// (spec.md §4.4's result stream is per-actor, not per-job).
type taskEnvelope[T any] struct {
	jobID string
	op    T
}

// resultEnvelope is what Run returns: the completed side effect plus
// enough to apply it and to report the owning job back to jobTracker.
type resultEnvelope[T any, C any] struct {
	jobID string
	op    T
	done  C
}

// jobTracker counts outstanding operations per dispatched job id, so a
// "job" (spec.md §4.6: one Starter dispatch) reports complete to the
// scheduler only once every operation within it has resolved.
type jobTracker struct {
	mu      sync.Mutex
	pending map[string]int
	failed  map[string]bool
}

func newJobTracker() *jobTracker {
	return &jobTracker{pending: make(map[string]int), failed: make(map[string]bool)}
}

func (t *jobTracker) start(jobID string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[jobID] = n
}

// resolve records one operation's outcome and reports back whether the job
// is now fully resolved, and if so whether any operation in it failed.
func (t *jobTracker) resolve(jobID string, failed bool) (done bool, anyFailed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if failed {
		t.failed[jobID] = true
	}
	t.pending[jobID]--
	if t.pending[jobID] > 0 {
		return false, false
	}
	delete(t.pending, jobID)
	anyFailed = t.failed[jobID]
	delete(t.failed, jobID)
	return true, anyFailed
}

// kind bundles one operation kind's wiring: the actor that runs it and a
// dispatch function the scheduler's Starter calls with a fresh batch.
type kind[T any, C any] struct {
	log     *zap.Logger
	sched   *scheduler.Scheduler
	tracker *jobTracker
	actor   *actor.Actor[taskEnvelope[T], resultEnvelope[T, C]]
	admit   func(jobID string, op T)
	apply   func(ctx context.Context, tx *catalog.Tx, op T, done C) error
}

// wireKind builds one operation kind's Actor, starts a goroutine applying
// its results inside a catalog transaction, and registers the kind's
// Starter with sched. admitOverride is nil for the direct in-memory path,
// or a durable-front-backed admitter for kinds that need crash recovery
// (spec.md §4.4's admission control says nothing about durability; this is
// an additive exemplar, not a requirement).
func wireKind[T any, C any](
	ctx context.Context,
	log *zap.Logger,
	store *catalog.Store,
	sched *scheduler.Scheduler,
	name string,
	cfg config.ActorConfig,
	required func(ctx context.Context) ([]T, error),
	perform func(ctx context.Context, op T) (C, error),
	apply func(ctx context.Context, tx *catalog.Tx, op T, done C) error,
	admitOverride func(jobID string, op T),
) *kind[T, C] {
	klog := log.Named(name)
	run := func(ctx context.Context, t taskEnvelope[T]) (resultEnvelope[T, C], error) {
		done, err := perform(ctx, t.op)
		return resultEnvelope[T, C]{jobID: t.jobID, op: t.op, done: done}, err
	}
	a := actor.New(run, cfg.MaxTasks, cfg.MaxQueueSize)
	tracker := newJobTracker()

	k := &kind[T, C]{log: klog, sched: sched, tracker: tracker, actor: a, apply: apply}
	if admitOverride != nil {
		k.admit = admitOverride
	} else {
		k.admit = func(jobID string, op T) { a.DoTask(taskEnvelope[T]{jobID: jobID, op: op}) }
	}

	go k.consume(ctx, store)

	sched.RegisterKind(name, func(ctx context.Context) (string, bool) {
		ops, err := required(ctx)
		if err != nil {
			klog.Error("consult rules", zap.Error(err))
			return "", false
		}
		if len(ops) == 0 {
			return "", false
		}
		jobID := uuid.NewString()
		tracker.start(jobID, len(ops))
		for _, op := range ops {
			k.admit(jobID, op)
		}
		return jobID, true
	})

	return k
}

// consume drains the actor's event stream: every TaskResult gets Applied
// inside its own catalog transaction (spec.md §9's Apply-is-its-own-short-
// transaction rule), then reported to jobTracker; once a job's last
// operation resolves, the scheduler is told it finished or failed.
func (k *kind[T, C]) consume(ctx context.Context, store *catalog.Store) {
	for ev := range k.actor.Events() {
		res, ok := ev.(actor.TaskResult[resultEnvelope[T, C]])
		if !ok {
			continue
		}
		failed := res.Err != nil
		if !failed {
			if err := store.WithTx(ctx, func(tx *catalog.Tx) error {
				return k.apply(ctx, tx, res.Value.op, res.Value.done)
			}); err != nil {
				k.log.Error("apply", zap.String("job_id", res.Value.jobID), zap.Error(err))
				failed = true
			}
		} else {
			k.log.Warn("side effects failed", zap.String("job_id", res.Value.jobID), zap.Error(res.Err))
		}

		done, anyFailed := k.tracker.resolve(res.Value.jobID, failed)
		if !done {
			continue
		}
		evKind := scheduler.EventJobComplete
		if anyFailed {
			evKind = scheduler.EventJobFailed
		}
		k.sched.Submit(scheduler.Event{Kind: evKind, JobID: res.Value.jobID})
	}
}

// shutdown drains the actor so every in-flight side effect either finishes
// or observes cancellation before the process exits.
func (k *kind[T, C]) shutdown() { k.actor.Shutdown() }

// indexingKind wires the indexing job kind, which runs one walk per
// AssetRoot rather than over a rules-derived op batch (spec.md §4.7/§4.9).
// Each dispatch is its own one-operation job, so no jobTracker is needed -
// the envelope's jobID round-trips through the result directly.
type indexingKind struct {
	actor *actor.Actor[taskEnvelope[catalog.AssetRoot], resultEnvelope[catalog.AssetRoot, struct{}]]
}

func wireIndexing(ctx context.Context, log *zap.Logger, store *catalog.Store, caps *runner.Capabilities, sched *scheduler.Scheduler, cfg config.ActorConfig, roots []catalog.AssetRootID, byID map[catalog.AssetRootID]catalog.AssetRoot) *indexingKind {
	ilog := log.Named("indexing")
	walker := indexing.NewWalker(store, caps)

	run := func(ctx context.Context, t taskEnvelope[catalog.AssetRoot]) (resultEnvelope[catalog.AssetRoot, struct{}], error) {
		root := t.op
		var newCount, dupCount, errCount int
		err := walker.WalkRoot(ctx, root, func(ev indexing.Event) {
			switch ev.(type) {
			case indexing.NewAsset:
				newCount++
			case indexing.DuplicateFound:
				dupCount++
			case indexing.IndexingError:
				errCount++
			}
		})
		ilog.Info("walked root", zap.Int64("root_id", int64(root.ID)),
			zap.Int("new", newCount), zap.Int("duplicate", dupCount), zap.Int("errors", errCount))
		return resultEnvelope[catalog.AssetRoot, struct{}]{jobID: t.jobID, op: root}, err
	}

	a := actor.New(run, cfg.MaxTasks, cfg.MaxQueueSize)
	ik := &indexingKind{actor: a}

	go func() {
		for ev := range a.Events() {
			res, ok := ev.(actor.TaskResult[resultEnvelope[catalog.AssetRoot, struct{}]])
			if !ok {
				continue
			}
			evKind := scheduler.EventJobComplete
			if res.Err != nil {
				evKind = scheduler.EventJobFailed
			}
			sched.Submit(scheduler.Event{Kind: evKind, JobID: res.Value.jobID})
		}
	}()

	sched.RegisterIndexing(func(ctx context.Context, rootID catalog.AssetRootID) (string, bool) {
		root, ok := byID[rootID]
		if !ok {
			return "", false
		}
		jobID := uuid.NewString()
		a.DoTask(taskEnvelope[catalog.AssetRoot]{jobID: jobID, op: root})
		return jobID, true
	}, roots)

	return ik
}

// Run builds every dependency from cfg, wires the four operation kinds and
// the scheduler, bootstraps AssetRoots on first launch, and blocks until
// ctx is cancelled, at which point every actor drains before returning.
func Run(ctx context.Context, cfg config.AppConfig, log *zap.Logger) error {
	if err := catalog.Migrate(cfg.Database.DSN()); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	store, err := catalog.Open(ctx, cfg.Database.DSN(), log)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	prov, err := storage.NewLocalStorage(cfg.StorageDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	caps := runner.NewCapabilities(cfg.Runners.ToRunnerPaths())
	deps := operation.Deps{Caps: caps, Storage: prov, Store: store}
	rulesCfg := cfg.Rules.ToRules()

	roots, err := bootstrapAssetRoots(ctx, store, cfg.AssetRoots)
	if err != nil {
		return fmt.Errorf("bootstrap asset roots: %w", err)
	}
	byID := make(map[catalog.AssetRootID]catalog.AssetRoot, len(roots))
	rootIDs := make([]catalog.AssetRootID, 0, len(roots))
	for _, r := range roots {
		byID[r.ID] = r
		rootIDs = append(rootIDs, r.ID)
	}

	mon := monitor.New()
	sched := scheduler.New(log, mon)

	var durableThumb *actor.DurableFront[taskEnvelope[operation.CreateThumbnail], thumbnailJobKind]
	if cfg.DurableAdmission {
		pool, perr := pgxpool.New(ctx, cfg.Database.DSN())
		if perr != nil {
			return fmt.Errorf("open durable admission pool: %w", perr)
		}
		durableThumb = actor.NewDurableFront[taskEnvelope[operation.CreateThumbnail], thumbnailJobKind](pool)
	}

	thumbKind := wireKind(ctx, log, store, sched, "thumbnail", cfg.Actors.Thumbnail,
		func(ctx context.Context) ([]operation.CreateThumbnail, error) {
			return rules.RequiredThumbnails(ctx, store, 64)
		},
		func(ctx context.Context, op operation.CreateThumbnail) (operation.CompletedCreateThumbnail, error) {
			return op.PerformSideEffects(ctx, deps)
		},
		func(ctx context.Context, tx *catalog.Tx, op operation.CreateThumbnail, done operation.CompletedCreateThumbnail) error {
			return op.Apply(ctx, tx, done)
		},
		nil,
	)
	if durableThumb != nil {
		durableThumb.RegisterKind(cfg.Actors.Thumbnail.MaxTasks, func(t taskEnvelope[operation.CreateThumbnail]) {
			thumbKind.actor.DoTask(t)
		})
		if err := durableThumb.Start(ctx); err != nil {
			return fmt.Errorf("start durable admission: %w", err)
		}
		thumbKind.admit = func(jobID string, op operation.CreateThumbnail) {
			if _, err := durableThumb.Enqueue(ctx, taskEnvelope[operation.CreateThumbnail]{jobID: jobID, op: op}); err != nil {
				log.Error("durable enqueue thumbnail", zap.Error(err))
			}
		}
	}

	convertKind := wireKind(ctx, log, store, sched, "image_convert", cfg.Actors.ImageConvert,
		func(ctx context.Context) ([]operation.ConvertImage, error) {
			return rules.RequiredImageConversion(ctx, store, rulesCfg)
		},
		func(ctx context.Context, op operation.ConvertImage) (operation.CompletedConvertImage, error) {
			return op.PerformSideEffects(ctx, deps)
		},
		func(ctx context.Context, tx *catalog.Tx, op operation.ConvertImage, done operation.CompletedConvertImage) error {
			return op.Apply(ctx, tx, done)
		},
		nil,
	)

	packageKind := wireKind(ctx, log, store, sched, "video_packaging", cfg.Actors.VideoPackaging,
		func(ctx context.Context) ([]operation.PackageVideo, error) {
			return rules.RequiredVideoPackaging(ctx, store, rulesCfg)
		},
		func(ctx context.Context, op operation.PackageVideo) (operation.CompletedPackageVideo, error) {
			return op.PerformSideEffects(ctx, deps)
		},
		func(ctx context.Context, tx *catalog.Tx, op operation.PackageVideo, done operation.CompletedPackageVideo) error {
			return op.Apply(ctx, tx, done)
		},
		nil,
	)

	idx := wireIndexing(ctx, log, store, caps, sched, cfg.Actors.Indexing, rootIDs, byID)

	go sched.Run(ctx)

	ticker := time.NewTicker(time.Duration(cfg.Server.SchedulerTickSecs) * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sched.Submit(scheduler.Event{Kind: scheduler.EventTimer})
			}
		}
	}()

	<-ctx.Done()
	log.Info("shutting down, draining actors")
	thumbKind.shutdown()
	convertKind.shutdown()
	packageKind.shutdown()
	idx.actor.Shutdown()
	if durableThumb != nil {
		if err := durableThumb.Stop(context.Background()); err != nil {
			log.Warn("stop durable admission", zap.Error(err))
		}
	}
	return nil
}

// bootstrapAssetRoots inserts cfg's configured roots on first launch (the
// catalog has none yet) and is a no-op thereafter; roots are managed in
// the database from then on, matching spec.md §4.9's "AssetRoots are
// catalog state, not config state" framing.
func bootstrapAssetRoots(ctx context.Context, store *catalog.Store, configured []string) ([]catalog.AssetRoot, error) {
	existing, err := store.ListAssetRoots(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	for _, path := range configured {
		if _, err := store.CreateAssetRoot(ctx, path); err != nil {
			return nil, fmt.Errorf("create asset root %s: %w", path, err)
		}
	}
	return store.ListAssetRoots(ctx)
}
