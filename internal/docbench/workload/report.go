package workload

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/kart-io/logger"

	opts "github.com/kart-io/docbench/pkg/options/workload"
	"github.com/kart-io/docbench/pkg/utils/json"
)

// OpReport summarizes one operation. Latencies are in microseconds; the
// percentiles are histogram bucket upper bounds.
type OpReport struct {
	Op         Op               `json:"op"`
	Operations int64            `json:"operations"`
	AvgMicros  float64          `json:"avgLatencyUs"`
	MinMicros  float64          `json:"minLatencyUs"`
	MaxMicros  float64          `json:"maxLatencyUs"`
	P95Micros  float64          `json:"p95LatencyUs"`
	P99Micros  float64          `json:"p99LatencyUs"`
	Statuses   map[Status]int64 `json:"statuses"`
}

// Report is the result of one phase.
type Report struct {
	RunID      string     `json:"runId"`
	Phase      string     `json:"phase"`
	Backend    string     `json:"backend"`
	Threads    int        `json:"threads"`
	Started    time.Time  `json:"started"`
	RunTimeMs  int64      `json:"runTimeMs"`
	Operations int64      `json:"operations"`
	Throughput float64    `json:"throughput"`
	Ops        []OpReport `json:"ops"`
}

// NewReport totals ops into a phase report.
func NewReport(runID, phase, backend string, threads int, started time.Time, elapsed time.Duration, ops []OpReport) *Report {
	r := &Report{
		RunID:     runID,
		Phase:     phase,
		Backend:   backend,
		Threads:   threads,
		Started:   started.UTC(),
		RunTimeMs: elapsed.Milliseconds(),
		Ops:       ops,
	}
	for _, o := range ops {
		r.Operations += o.Operations
	}
	if secs := elapsed.Seconds(); secs > 0 {
		r.Throughput = float64(r.Operations) / secs
	}
	return r
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteText writes the report in the bracketed line format of YCSB.
func (r *Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	line := func(section, metric, value string) {
		fmt.Fprintf(bw, "[%s], %s, %s\n", section, metric, value)
	}

	line("OVERALL", "RunTime(ms)", strconv.FormatInt(r.RunTimeMs, 10))
	line("OVERALL", "Throughput(ops/sec)", fmtFloat(r.Throughput))
	for _, o := range r.Ops {
		s := o.Op.Label()
		line(s, "Operations", strconv.FormatInt(o.Operations, 10))
		line(s, "AverageLatency(us)", fmtFloat(o.AvgMicros))
		line(s, "MinLatency(us)", fmtFloat(o.MinMicros))
		line(s, "MaxLatency(us)", fmtFloat(o.MaxMicros))
		line(s, "95thPercentileLatency(us)", fmtFloat(o.P95Micros))
		line(s, "99thPercentileLatency(us)", fmtFloat(o.P99Micros))
		for _, st := range allStatuses {
			if n := o.Statuses[st]; n > 0 {
				line(s, "Return="+string(st), strconv.FormatInt(n, 10))
			}
		}
	}
	return bw.Flush()
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

var csvHeader = []string{
	"run_id", "phase", "op", "operations",
	"avg_us", "min_us", "max_us", "p95_us", "p99_us",
	"ok", "batched_ok", "not_found", "error",
}

// WriteCSV writes one row per operation.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range r.Ops {
		row := []string{
			r.RunID, r.Phase, string(o.Op), strconv.FormatInt(o.Operations, 10),
			fmtFloat(o.AvgMicros), fmtFloat(o.MinMicros), fmtFloat(o.MaxMicros),
			fmtFloat(o.P95Micros), fmtFloat(o.P99Micros),
		}
		for _, st := range allStatuses {
			row = append(row, strconv.FormatInt(o.Statuses[st], 10))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOutputs writes the text report to w and every file output configured
// in o.
func WriteOutputs(w io.Writer, o *opts.Options, rep *Report, stats *Stats) error {
	if err := rep.WriteText(w); err != nil {
		return ErrReport.WithCause(err).WithMessage("text report")
	}
	files := []struct {
		path  string
		write func(io.Writer) error
	}{
		{o.ReportJSON, rep.WriteJSON},
		{o.ReportCSV, rep.WriteCSV},
		{o.MetricsPath, func(w io.Writer) error {
			stats.WritePrometheus(w)
			return nil
		}},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if err := writeFile(f.path, f.write); err != nil {
			return ErrReport.WithCause(err).WithMessagef("write %s", f.path)
		}
		logger.Infow("Wrote report output", "path", f.path, "phase", rep.Phase)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
