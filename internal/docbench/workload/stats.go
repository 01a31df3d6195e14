package workload

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/pkg/errors"
)

// Status classifies an operation outcome.
type Status string

// Statuses as they appear in the report.
const (
	StatusOK       Status = "OK"
	StatusBatched  Status = "BATCHED_OK"
	StatusNotFound Status = "NOT_FOUND"
	StatusError    Status = "ERROR"
)

var allStatuses = []Status{StatusOK, StatusBatched, StatusNotFound, StatusError}

// Classify maps an operation error to its status.
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.IsCode(err, docstore.ErrNotFound.Code), errors.IsCode(err, docstore.ErrScanEmpty.Code):
		return StatusNotFound
	default:
		return StatusError
	}
}

// opStats is the exact part of one operation's statistics. Percentiles come
// from the histogram.
type opStats struct {
	count    atomic.Int64
	sumNs    atomic.Int64
	minNs    atomic.Int64
	maxNs    atomic.Int64
	statuses *xsync.MapOf[Status, *atomic.Int64]
	hist     *metrics.Histogram
}

func newOpStats(hist *metrics.Histogram) *opStats {
	s := &opStats{
		statuses: xsync.NewMapOf[Status, *atomic.Int64](),
		hist:     hist,
	}
	s.minNs.Store(math.MaxInt64)
	return s
}

// min returns the smallest observation, or 0 before the first one lands.
func (s *opStats) min() int64 {
	if v := s.minNs.Load(); v != math.MaxInt64 {
		return v
	}
	return 0
}

func (s *opStats) observe(d time.Duration, st Status) {
	ns := int64(d)
	s.count.Add(1)
	s.sumNs.Add(ns)
	for {
		cur := s.minNs.Load()
		if cur <= ns || s.minNs.CompareAndSwap(cur, ns) {
			break
		}
	}
	for {
		cur := s.maxNs.Load()
		if cur >= ns || s.maxNs.CompareAndSwap(cur, ns) {
			break
		}
	}
	c, _ := s.statuses.LoadOrCompute(st, func() *atomic.Int64 { return new(atomic.Int64) })
	c.Add(1)
	s.hist.Update(d.Seconds())
}

// Stats collects latencies and outcomes from every worker. It is safe for
// concurrent use.
type Stats struct {
	set *metrics.Set
	ops *xsync.MapOf[Op, *opStats]
}

// NewStats creates an empty collector with its own metrics set.
func NewStats() *Stats {
	return &Stats{
		set: metrics.NewSet(),
		ops: xsync.NewMapOf[Op, *opStats](),
	}
}

// Measure records one operation that started at start.
func (s *Stats) Measure(op Op, start time.Time, st Status) {
	s.Observe(op, time.Since(start), st)
}

// Observe records one operation of duration d.
func (s *Stats) Observe(op Op, d time.Duration, st Status) {
	os, _ := s.ops.LoadOrCompute(op, func() *opStats {
		return newOpStats(s.set.GetOrCreateHistogram(fmt.Sprintf(`docbench_op_duration_seconds{op=%q}`, string(op))))
	})
	os.observe(d, st)
	s.set.GetOrCreateCounter(fmt.Sprintf(`docbench_op_total{op=%q,status=%q}`, string(op), string(st))).Inc()
}

// WritePrometheus writes every histogram and counter in Prometheus text format.
func (s *Stats) WritePrometheus(w io.Writer) {
	s.set.WritePrometheus(w)
}

// Snapshot summarizes every operation seen so far, in report order.
func (s *Stats) Snapshot() []OpReport {
	out := make([]OpReport, 0, len(AllOps))
	for _, op := range AllOps {
		os, ok := s.ops.Load(op)
		if !ok {
			continue
		}
		n := os.count.Load()
		if n == 0 {
			continue
		}
		r := OpReport{
			Op:         op,
			Operations: n,
			AvgMicros:  float64(os.sumNs.Load()) / float64(n) / 1e3,
			MinMicros:  float64(os.min()) / 1e3,
			MaxMicros:  float64(os.maxNs.Load()) / 1e3,
			P95Micros:  quantile(os.hist, n, 0.95) * 1e6,
			P99Micros:  quantile(os.hist, n, 0.99) * 1e6,
			Statuses:   make(map[Status]int64, len(allStatuses)),
		}
		for _, st := range allStatuses {
			if c, ok := os.statuses.Load(st); ok {
				r.Statuses[st] = c.Load()
			}
		}
		out = append(out, r)
	}
	return out
}

// quantile returns the upper bound, in seconds, of the histogram bucket that
// holds the q-th observation of n.
func quantile(h *metrics.Histogram, n int64, q float64) float64 {
	target := uint64(math.Ceil(q * float64(n)))
	var seen uint64
	result := math.NaN()
	h.VisitNonZeroBuckets(func(vmrange string, count uint64) {
		if !math.IsNaN(result) {
			return
		}
		seen += count
		if seen >= target {
			result = bucketUpper(vmrange)
		}
	})
	if math.IsNaN(result) {
		return 0
	}
	return result
}

// bucketUpper parses the upper bound of a "lower...upper" bucket range.
func bucketUpper(vmrange string) float64 {
	i := strings.Index(vmrange, "...")
	if i < 0 {
		return 0
	}
	v, err := strconv.ParseFloat(vmrange[i+3:], 64)
	if err != nil {
		return 0
	}
	return v
}
