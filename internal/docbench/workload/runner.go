// Package workload drives the benchmark phases against a docstore: key and
// value generation, the worker loops, latency statistics and reports.
package workload

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/pkg/id"
	"github.com/kart-io/docbench/pkg/infra/pool"
	opts "github.com/kart-io/docbench/pkg/options/workload"
)

// Phases.
const (
	PhaseLoad = "load"
	PhaseRun  = "run"
)

// releaseTimeout bounds the wait for idle pool goroutines after a phase.
const releaseTimeout = 5 * time.Second

// Runner executes the load and run phases. Every worker owns a
// docstore.Client; all of them share the Manager's handle.
type Runner struct {
	o       *opts.Options
	mgr     *docstore.Manager
	cfg     docstore.Config
	backend string
	stats   *Stats

	// records is the size of the key space; run-phase inserts grow it.
	records atomic.Int64
}

// NewRunner creates a runner. backend names the store in reports.
func NewRunner(o *opts.Options, mgr *docstore.Manager, cfg docstore.Config, backend string) *Runner {
	r := &Runner{
		o:       o,
		mgr:     mgr,
		cfg:     cfg,
		backend: backend,
		stats:   NewStats(),
	}
	r.records.Store(o.RecordCount)
	return r
}

// Stats returns the collector shared by both phases.
func (r *Runner) Stats() *Stats {
	return r.stats
}

// Load inserts RecordCount documents, split evenly across the workers.
func (r *Runner) Load(ctx context.Context) (*Report, error) {
	r.stats = NewStats()
	return r.phase(ctx, PhaseLoad, r.o.RecordCount, func(ctx context.Context, c *docstore.Client, g *Generator, from, to int64) {
		for n := from; n < to; n++ {
			if ctx.Err() != nil {
				return
			}
			r.insert(ctx, c, g, n, r.o.LoadTTL)
		}
	})
}

// Run performs OperationCount operations drawn from the proportions. The
// worker holding the last range finishes with one expiry cleanup of the table.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.stats = NewStats()
	total := r.o.OperationCount
	return r.phase(ctx, PhaseRun, total, func(ctx context.Context, c *docstore.Client, g *Generator, from, to int64) {
		for n := from; n < to; n++ {
			if ctx.Err() != nil {
				return
			}
			r.do(ctx, c, g, g.NextOp())
		}
		if from < to && to == total {
			r.do(ctx, c, g, OpCleanup)
		}
	})
}

type workFunc func(ctx context.Context, c *docstore.Client, g *Generator, from, to int64)

func (r *Runner) phase(ctx context.Context, phase string, total int64, work workFunc) (*Report, error) {
	threads := r.o.Threads
	p, err := pool.NewPool("docbench-"+phase, pool.WorkerPool, pool.WorkerPoolConfig(threads))
	if err != nil {
		return nil, ErrWorker.WithCause(err).WithMessage("create worker pool")
	}
	defer func() {
		if err := p.ReleaseTimeout(releaseTimeout); err != nil {
			logger.Warnw("Worker pool release", "name", p.Name(), "error", err)
		}
	}()

	seed := r.o.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger.Infow("Starting phase",
		"phase", phase,
		"threads", threads,
		"operations", total,
		"table", r.o.Table,
		"seed", seed,
	)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	started := time.Now()
	per, rem := total/int64(threads), total%int64(threads)
	from := int64(0)
	for i := 0; i < threads; i++ {
		to := from + per
		if int64(i) < rem {
			to++
		}
		lo, hi, worker := from, to, i
		from = to

		wg.Add(1)
		err := p.SubmitWithContext(ctx, func() {
			defer wg.Done()
			if err := r.worker(ctx, worker, seed+int64(worker), lo, hi, work); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(ErrWorker.WithCause(err).WithMessagef("submit worker %d", worker))
		}
	}
	wg.Wait()
	elapsed := time.Since(started)

	rep := NewReport(id.NewRunID(), phase, r.backend, threads, started, elapsed, r.stats.Snapshot())
	logger.Infow("Finished phase",
		"phase", phase,
		"runId", rep.RunID,
		"operations", rep.Operations,
		"runtimeMs", rep.RunTimeMs,
		"throughput", rep.Throughput,
	)

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if len(errs) > 0 {
		return rep, errs[0]
	}
	return rep, nil
}

// worker runs one client through [from, to). Per-operation failures are
// counted, only Init failures are returned.
func (r *Runner) worker(ctx context.Context, i int, seed, from, to int64, work workFunc) error {
	c := docstore.NewClient(r.mgr, r.cfg)
	if err := c.Init(ctx); err != nil {
		logger.Errorw("Worker could not initialize", "worker", i, "error", err)
		return err
	}
	defer func() {
		// Cleanup must run even when the phase was cancelled.
		_ = c.Cleanup(context.WithoutCancel(ctx))
	}()

	work(ctx, c, NewGenerator(r.o, seed), from, to)
	logger.Debugw("Worker finished", "worker", i, "from", from, "to", to, "pending", c.Pending())
	return nil
}

func (r *Runner) insert(ctx context.Context, c *docstore.Client, g *Generator, n int64, ttl bool) {
	op := OpInsert
	if ttl {
		op = OpInsertTTL
	}
	key, values := g.Key(n), g.Values(n)

	start := time.Now()
	var (
		out docstore.Outcome
		err error
	)
	if ttl {
		out, err = c.InsertTTL(ctx, r.o.Table, key, values, r.o.TTL)
	} else {
		out, err = c.Insert(ctx, r.o.Table, key, values)
	}
	st := Classify(err)
	if err == nil && out == docstore.Buffered {
		st = StatusBatched
	}
	r.stats.Measure(op, start, st)
}

func (r *Runner) do(ctx context.Context, c *docstore.Client, g *Generator, op Op) {
	table := r.o.Table
	switch op {
	case OpInsert, OpInsertTTL:
		n := r.records.Add(1) - 1
		r.insert(ctx, c, g, n, op == OpInsertTTL)
		return
	case OpCleanup:
		start := time.Now()
		_, err := c.CleanupExpired(ctx, table)
		r.stats.Measure(op, start, Classify(err))
		return
	}

	key := g.Key(g.KeyNum(r.records.Load()))
	start := time.Now()
	var err error
	switch op {
	case OpRead:
		_, err = c.Read(ctx, table, key, g.ReadFields())
	case OpUpdate:
		err = c.Update(ctx, table, key, g.UpdateValues())
	case OpScan:
		_, err = c.Scan(ctx, table, key, g.ScanLength(), g.ReadFields())
	case OpDelete:
		err = c.Delete(ctx, table, key)
	case OpVerifyTTL:
		err = c.VerifyTTL(ctx, table, key)
	case OpReadMeta:
		f, cond := g.RandomMetaQuery()
		_, err = c.ReadMeta(ctx, table, f, cond, "")
	case OpUpdateMeta:
		f, cond := g.RandomMetaQuery()
		field, value := g.MetaUpdate()
		_, err = c.UpdateMeta(ctx, table, f, cond, "", field, value)
	case OpDeleteMeta:
		f, cond := g.RandomMetaQuery()
		_, err = c.DeleteMeta(ctx, table, f, cond, "")
	}
	r.stats.Measure(op, start, Classify(err))
}
