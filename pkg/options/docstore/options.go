// Package docstore provides options for the shared document store handle.
package docstore

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docbench/pkg/errors"
	"github.com/kart-io/docbench/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Backends.
const (
	BackendMongoDB = "mongodb"
	BackendRedis   = "redis"
	BackendMemory  = "memory"
)

// Options configures the store handle shared by every worker.
type Options struct {
	// Backend selects the store implementation.
	Backend string `json:"backend" mapstructure:"backend"`
	// BatchSize is the number of inserts a worker buffers before writing.
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`
	// Upsert turns inserts into identifier-keyed upserts.
	Upsert bool `json:"upsert" mapstructure:"upsert"`
	// CleanupInterval is the pause between expiry sweeps.
	CleanupInterval time.Duration `json:"cleanup-interval" mapstructure:"cleanup-interval"`
	// StopTimeout bounds the wait for the sweeper at shutdown.
	StopTimeout time.Duration `json:"stop-timeout" mapstructure:"stop-timeout"`
	// AuditLogPath is the log file tailed by ReadLog.
	AuditLogPath string `json:"auditlog-path" mapstructure:"auditlog-path"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Backend:         BackendMongoDB,
		BatchSize:       1,
		CleanupInterval: 60 * time.Second,
		StopTimeout:     5 * time.Second,
	}
}

// Complete completes the options.
func (o *Options) Complete() error {
	if o.BatchSize < 1 {
		o.BatchSize = 1
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case BackendMongoDB, BackendRedis, BackendMemory:
	default:
		errs = append(errs, errors.ErrInvalidConfig.WithMessagef(
			"docstore.backend must be one of %s, %s, %s; got %q", BackendMongoDB, BackendRedis, BackendMemory, o.Backend))
	}
	if o.CleanupInterval <= 0 {
		errs = append(errs, errors.ErrInvalidConfig.WithMessagef("docstore.cleanup-interval must be positive, got %s", o.CleanupInterval))
	}
	if o.StopTimeout <= 0 {
		errs = append(errs, errors.ErrInvalidConfig.WithMessagef("docstore.stop-timeout must be positive, got %s", o.StopTimeout))
	}
	return errs
}

// AddFlags adds flags for docstore options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "docstore."
	fs.StringVar(&o.Backend, p+"backend", o.Backend,
		fmt.Sprintf("Store backend (%s|%s|%s)", BackendMongoDB, BackendRedis, BackendMemory))
	fs.IntVar(&o.BatchSize, p+"batch-size", o.BatchSize, "Inserts buffered per worker before a bulk write. 1 disables batching.")
	fs.BoolVar(&o.Upsert, p+"upsert", o.Upsert, "Write inserts as identifier-keyed upserts")
	fs.DurationVar(&o.CleanupInterval, p+"cleanup-interval", o.CleanupInterval, "Pause between background expiry sweeps")
	fs.DurationVar(&o.StopTimeout, p+"stop-timeout", o.StopTimeout, "Maximum wait for the expiry sweeper at shutdown")
	fs.StringVar(&o.AuditLogPath, p+"auditlog-path", o.AuditLogPath, "Audit log file read by the tail command. Empty reads the store profile.")
}
