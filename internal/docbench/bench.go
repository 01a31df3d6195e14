package docbench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docbench/internal/docbench/workload"
	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/pkg/component/mongodb"
	"github.com/kart-io/docbench/pkg/component/redis"
	"github.com/kart-io/docbench/pkg/component/storage"
	"github.com/kart-io/docbench/pkg/infra/pool"
	docstoreopts "github.com/kart-io/docbench/pkg/options/docstore"
)

// pingTimeout bounds one backend health check.
const pingTimeout = 10 * time.Second

// Bench runs docbench commands against one configuration. Results go to out.
type Bench struct {
	cfg    *Config
	store  docstore.Config
	mgr    *docstore.Manager
	runner *workload.Runner
	out    io.Writer
}

// New creates a Bench. Nothing connects until a command runs.
func New(cfg *Config, out io.Writer) (*Bench, error) {
	sc, err := cfg.StoreConfig()
	if err != nil {
		return nil, err
	}
	mgr := docstore.NewManager()
	return &Bench{
		cfg:    cfg,
		store:  sc,
		mgr:    mgr,
		runner: workload.NewRunner(cfg.Workload, mgr, sc, cfg.Docstore.Backend),
		out:    out,
	}, nil
}

// Manager returns the manager sharing the store handle across workers.
func (b *Bench) Manager() *docstore.Manager {
	return b.mgr
}

// Load runs the load phase and writes its report.
func (b *Bench) Load(ctx context.Context) error {
	rep, err := b.runner.Load(ctx)
	return b.report(rep, err)
}

// Run runs the transaction phase and writes its report.
func (b *Bench) Run(ctx context.Context) error {
	rep, err := b.runner.Run(ctx)
	return b.report(rep, err)
}

// Bench runs the load phase then the transaction phase. It is the only way to
// benchmark the memory backend, whose data lives as long as the process.
func (b *Bench) Bench(ctx context.Context) error {
	if err := b.Load(ctx); err != nil {
		return err
	}
	return b.Run(ctx)
}

func (b *Bench) report(rep *workload.Report, err error) error {
	if rep != nil {
		if werr := workload.WriteOutputs(b.out, b.cfg.Workload, rep, b.runner.Stats()); werr != nil {
			logger.Errorw("Could not write report", "phase", rep.Phase, "error", werr)
			if err == nil {
				err = werr
			}
		}
	}
	return err
}

// Sweep runs one expiry sweep over every collection and prints how many
// documents each one lost.
func (b *Bench) Sweep(ctx context.Context) error {
	h, err := b.mgr.Acquire(ctx, b.store)
	if err != nil {
		return err
	}
	defer b.mgr.Release(context.WithoutCancel(ctx))

	res, err := h.Sweeper().SweepOnce(ctx, h.Clock().Now())
	if err != nil {
		return err
	}
	for coll, n := range res.Deleted {
		fmt.Fprintf(b.out, "%s\t%d\n", coll, n)
	}
	for coll, ferr := range res.Failed {
		fmt.Fprintf(b.out, "%s\tfailed: %v\n", coll, ferr)
	}
	fmt.Fprintf(b.out, "total\t%d\n", res.Total())
	return nil
}

// Tail prints up to count recent audit or profile log entries, oldest first.
func (b *Bench) Tail(ctx context.Context, count int) error {
	c := docstore.NewClient(b.mgr, b.store)
	if err := c.Init(ctx); err != nil {
		return err
	}
	defer func() { _ = c.Cleanup(context.WithoutCancel(ctx)) }()

	lines, err := c.ReadLog(ctx, b.cfg.Workload.Table, count)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(b.out, line)
	}
	return nil
}

// Ping checks the selected backend through its connection component and
// prints the result.
func (b *Bench) Ping(ctx context.Context) error {
	var factory storage.Factory
	switch b.cfg.Docstore.Backend {
	case docstoreopts.BackendMongoDB:
		factory = mongodb.NewFactory(b.cfg.MongoDB)
	case docstoreopts.BackendRedis:
		factory = redis.NewFactory(b.cfg.Redis)
	default:
		fmt.Fprintf(b.out, "%s\tok\tin-process\n", b.cfg.Docstore.Backend)
		return nil
	}

	p, err := pool.NewPool("docbench-health", pool.HealthCheckPool, pool.HealthCheckPoolConfig())
	if err != nil {
		return err
	}
	defer p.Release()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	client, err := factory.Create(ctx)
	if err != nil {
		fmt.Fprintf(b.out, "%s\tunreachable\t%v\n", b.cfg.Docstore.Backend, err)
		return err
	}

	mgr := storage.NewManager(p)
	defer func() { _ = mgr.CloseAll() }()
	if err := mgr.Register(client.Name(), client); err != nil {
		_ = client.Close()
		return err
	}

	statuses := mgr.HealthCheckAll(ctx)
	var failed error
	for _, name := range mgr.List() {
		st := statuses[name]
		if st.Healthy {
			fmt.Fprintf(b.out, "%s\tok\t%s\n", name, st.Latency.Round(time.Microsecond))
			continue
		}
		fmt.Fprintf(b.out, "%s\tunhealthy\t%v\n", name, st.Error)
		if failed == nil {
			failed = st.Error
		}
	}
	if rc, ok := client.(*redis.Client); ok {
		writeRedisStats(b.out, rc.Name(), rc.HealthWithStats(ctx))
	}
	return failed
}

func writeRedisStats(w io.Writer, name string, st *redis.HealthStats) {
	if st.Healthy {
		fmt.Fprintf(w, "%s\tkeys\t%d\n", name, st.Keys)
	}
	if ps := st.PoolStats; ps != nil {
		fmt.Fprintf(w, "%s\tpool\thits=%d misses=%d timeouts=%d total=%d idle=%d stale=%d\n",
			name, ps.Hits, ps.Misses, ps.Timeouts, ps.TotalConns, ps.IdleConns, ps.StaleConns)
	}
}
