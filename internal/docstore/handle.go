package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docbench/pkg/errors"
)

// Config is resolved once, by the acquisition that creates the handle. Later
// acquisitions share the first configuration.
type Config struct {
	// Connect builds the store.
	Connect Connector
	// BatchSize is the number of inserts a worker buffers before writing.
	BatchSize int
	// Upsert turns inserts into identifier-keyed upserts.
	Upsert bool
	// SweepInterval is the pause between background sweep passes.
	SweepInterval time.Duration
	// StopTimeout bounds the wait for the sweeper at teardown.
	StopTimeout time.Duration
	// AuditLogPath is the file ReadLog tails. Empty selects the store's
	// profiling log.
	AuditLogPath string
	// Clock is the time source for every expiry decision.
	Clock Clock
}

func (c Config) withDefaults() Config {
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	return c
}

// Handle is the live shared connection. It is only obtained from
// Manager.Acquire and must not be used after the matching Release.
type Handle struct {
	store    Store
	defaults Defaults
	cfg      Config
	sweeper  *Sweeper
}

// Store returns the shared store.
func (h *Handle) Store() Store { return h.store }

// Defaults returns the read preference and write concern resolved at connect time.
func (h *Handle) Defaults() Defaults { return h.defaults }

// Config returns the configuration the handle was built with.
func (h *Handle) Config() Config { return h.cfg }

// Clock returns the handle's time source.
func (h *Handle) Clock() Clock { return h.cfg.Clock }

// Sweeper returns the handle's background sweeper.
func (h *Handle) Sweeper() *Sweeper { return h.sweeper }

// Manager reference-counts one Handle across many clients. The count and the
// handle pointer change together under mu, so no caller can observe a live
// count with a closed connection.
type Manager struct {
	mu     sync.Mutex
	refs   int
	handle *Handle
}

// Default is the process-wide manager used by NewClient when none is given.
var Default = NewManager()

// NewManager creates a manager with no live handle.
func NewManager() *Manager {
	return &Manager{}
}

// Refs returns the current reference count.
func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Live reports whether a handle currently exists.
func (m *Manager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil
}

// Acquire returns the shared handle, connecting and starting the sweeper on
// the first call. A failed connect leaves the count untouched.
func (m *Manager) Acquire(ctx context.Context, cfg Config) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		m.refs++
		return m.handle, nil
	}

	if cfg.Connect == nil {
		return nil, ErrConfig.WithMessage("no store connector configured")
	}
	cfg = cfg.withDefaults()

	store, err := cfg.Connect(ctx)
	if err != nil {
		logger.Errorw("Failed to initialize store connection", "error", err)
		if errors.GetCategory(errors.GetCode(err)) == errors.CategoryConfig {
			return nil, err
		}
		return nil, ErrStore.WithCause(err).WithMessage("connect")
	}

	h := &Handle{
		store:    store,
		defaults: store.Defaults(),
		cfg:      cfg,
		sweeper:  NewSweeper(store, cfg.Clock, cfg.SweepInterval),
	}
	h.sweeper.Start()

	m.handle = h
	m.refs = 1

	logger.Infow("Store connection created",
		"readPreference", h.defaults.ReadPreference,
		"writeConcern", h.defaults.WriteConcern,
		"batchSize", cfg.BatchSize,
		"upsert", cfg.Upsert,
		"sweepInterval", cfg.SweepInterval,
	)
	return h, nil
}

// Release drops one reference. The last release stops the sweeper, runs a
// final synchronous sweep, closes the store and clears the handle so a later
// Acquire reconnects. Teardown problems are logged, never returned.
func (m *Manager) Release(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs == 0 {
		logger.Warnw("Release called without a matching Acquire")
		return
	}

	m.refs--
	if m.refs > 0 {
		return
	}

	h := m.handle
	m.handle = nil
	h.teardown(ctx)
}

func (h *Handle) teardown(ctx context.Context) {
	// Stop must come strictly before Close.
	if err := h.sweeper.Stop(h.cfg.StopTimeout); err != nil {
		logger.Warnw("Expiry sweeper shutdown", "error", err)
	}

	logger.Infow("Running final expiry sweep")
	res, err := h.sweeper.SweepOnce(ctx, h.cfg.Clock.Now())
	if err != nil {
		logger.Errorw("Final expiry sweep failed", "error", err)
	} else {
		logger.Infow("Final expiry sweep finished",
			"deleted", res.Total(),
			"failedCollections", len(res.Failed),
		)
	}

	if err := h.store.Close(ctx); err != nil {
		logger.Errorw("Could not close store connection", "error", err)
		return
	}
	logger.Infow("Store connection closed")
}
