package docstore

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
)

const (
	// DefaultSweepInterval is the pause between two background sweep passes.
	DefaultSweepInterval = 60 * time.Second
	// DefaultStopTimeout bounds how long teardown waits for the sweeper.
	DefaultStopTimeout = 5 * time.Second

	systemCollectionPrefix = "system."
	auditLogCollection     = "audit_log"
)

// SweeperState is the lifecycle state of a Sweeper.
type SweeperState int32

const (
	SweeperStopped SweeperState = iota
	SweeperRunning
	SweeperStopping
)

func (s SweeperState) String() string {
	switch s {
	case SweeperStopped:
		return "stopped"
	case SweeperRunning:
		return "running"
	case SweeperStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	// Deleted maps each swept collection to the number of removed documents.
	Deleted map[string]int64
	// Failed maps each collection whose delete failed to the error.
	Failed map[string]error
}

// Total returns the number of documents removed across all collections.
func (r SweepResult) Total() int64 {
	var n int64
	for _, d := range r.Deleted {
		n += d
	}
	return n
}

// Sweepable reports whether the sweeper should clean coll. System
// collections and the audit log are never swept.
func Sweepable(coll string) bool {
	return !strings.HasPrefix(coll, systemCollectionPrefix) && coll != auditLogCollection
}

// Sweeper physically deletes logically-expired documents on a fixed interval.
// Reads never depend on it having run; it is cleanup only. It shares no lock
// with Client or Batcher and relies on the store's per-call atomicity.
type Sweeper struct {
	store    Store
	clock    Clock
	interval time.Duration

	// mu serializes Start/Stop transitions; it is never held during a pass.
	mu     sync.Mutex
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	passes atomic.Int64
}

// NewSweeper creates a stopped sweeper. A non-positive interval selects
// DefaultSweepInterval.
func NewSweeper(store Store, clock Clock, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Sweeper{
		store:    store,
		clock:    clock,
		interval: interval,
	}
}

// State returns the current lifecycle state.
func (s *Sweeper) State() SweeperState {
	return SweeperState(s.state.Load())
}

// Passes returns how many background passes have completed.
func (s *Sweeper) Passes() int64 {
	return s.passes.Load()
}

// Interval returns the pause between passes.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Start launches the background loop. Starting a sweeper that is running, or
// whose abandoned loop has not exited yet, is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != SweeperStopped {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state.Store(int32(SweeperRunning))

	go s.loop(ctx, s.done)
}

// Stop signals the loop to exit and waits up to timeout for it. An
// interrupted wait ends immediately; an in-flight pass is abandoned through
// its context. If the loop has not exited when timeout elapses the goroutine
// is abandoned and ErrSweeperTimeout is returned; the state stays
// SweeperStopping until the abandoned loop returns.
func (s *Sweeper) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != SweeperRunning {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	logger.Infow("Stopping expiry sweeper", "timeout", timeout)
	s.state.Store(int32(SweeperStopping))
	s.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		s.state.Store(int32(SweeperStopped))
		return nil
	case <-timer.C:
		logger.Warnw("Expiry sweeper did not stop in time, abandoning it", "timeout", timeout)
		return ErrSweeperTimeout.WithMessagef("sweeper still running after %s", timeout)
	}
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.state.CompareAndSwap(int32(SweeperStopping), int32(SweeperStopped))

	logger.Infow("Expiry sweeper started", "interval", s.interval)
	defer logger.Infow("Expiry sweeper stopped", "passes", s.passes.Load())

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if _, err := s.SweepOnce(ctx, s.clock.Now()); err != nil && ctx.Err() == nil {
			logger.Errorw("Expiry sweep pass failed", "error", err)
		}
		s.passes.Add(1)

		// No new pass once the stop signal has been seen.
		if ctx.Err() != nil {
			return
		}
		timer.Reset(s.interval)
	}
}

// SweepOnce deletes every document with expiresAt <= now from each sweepable
// collection. A failing collection is logged and recorded in the result; the
// remaining collections are still swept. The returned error is set only when
// the collections could not be listed.
//
// Running SweepOnce twice at the same now removes documents only the first
// time; concurrent passes converge on the same end state.
func (s *Sweeper) SweepOnce(ctx context.Context, now int64) (SweepResult, error) {
	res := SweepResult{
		Deleted: make(map[string]int64),
		Failed:  make(map[string]error),
	}

	colls, err := s.store.Collections(ctx)
	if err != nil {
		return res, ErrStore.WithCause(err).WithMessage("list collections")
	}

	for _, coll := range colls {
		if !Sweepable(coll) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		n, err := s.store.DeleteExpired(ctx, coll, now)
		if err != nil {
			logger.Errorw("Failed to delete expired documents",
				"collection", coll,
				"error", err,
			)
			res.Failed[coll] = err
			continue
		}
		res.Deleted[coll] = n
		if n > 0 {
			logger.Infow("Deleted expired documents",
				"collection", coll,
				"count", n,
			)
		}
	}

	return res, nil
}
