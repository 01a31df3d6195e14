// Package options contains flags and options for initializing docbench.
package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/docbench/internal/docbench"
	cliflag "github.com/kart-io/docbench/pkg/app/cliflag"
	genericoptions "github.com/kart-io/docbench/pkg/options"
	docstoreopts "github.com/kart-io/docbench/pkg/options/docstore"
	logopts "github.com/kart-io/docbench/pkg/options/logger"
	mongoopts "github.com/kart-io/docbench/pkg/options/mongodb"
	redisopts "github.com/kart-io/docbench/pkg/options/redis"
	workloadopts "github.com/kart-io/docbench/pkg/options/workload"
)

// Options contains every option group of docbench.
type Options struct {
	// Docstore selects the backend and configures the shared handle.
	Docstore *docstoreopts.Options `json:"docstore" mapstructure:"docstore"`

	// MongoDB contains the MongoDB backend configuration.
	MongoDB *mongoopts.Options `json:"mongodb" mapstructure:"mongodb"`

	// Redis contains the Redis backend configuration.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Workload shapes the load and run phases.
	Workload *workloadopts.Options `json:"workload" mapstructure:"workload"`
}

// NewOptions creates an Options instance with default values.
func NewOptions() *Options {
	return &Options{
		Docstore: docstoreopts.NewOptions(),
		MongoDB:  mongoopts.NewOptions(),
		Redis:    redisopts.NewOptions(),
		Log:      logopts.NewOptions(),
		Workload: workloadopts.NewOptions(),
	}
}

// Flags returns the flags of every option group by section name.
func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.Docstore.AddFlags(fss.FlagSet("docstore"))
	o.Workload.AddFlags(fss.FlagSet("workload"))
	o.MongoDB.AddFlags(fss.FlagSet("mongodb"))
	o.Redis.AddFlags(fss.FlagSet("redis"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete completes all the required options.
func (o *Options) Complete() error {
	return genericoptions.CompleteAll(o.Docstore, o.Workload, o.MongoDB, o.Redis, o.Log)
}

// Validate checks whether the options are valid. Only the selected backend's
// group is validated.
func (o *Options) Validate() error {
	groups := []genericoptions.IOptions{o.Docstore, o.Workload, o.Log}
	switch o.Docstore.Backend {
	case docstoreopts.BackendMongoDB:
		groups = append(groups, o.MongoDB)
	case docstoreopts.BackendRedis:
		groups = append(groups, o.Redis)
	}

	return utilerrors.NewAggregate(genericoptions.ValidateAll(groups...))
}

// Config builds a docbench.Config based on Options.
func (o *Options) Config() *docbench.Config {
	return &docbench.Config{
		Docstore: o.Docstore,
		MongoDB:  o.MongoDB,
		Redis:    o.Redis,
		Workload: o.Workload,
	}
}
