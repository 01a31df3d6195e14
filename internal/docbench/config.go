// Package docbench wires the workload runner, the shared document store and
// the backend components into the commands of the benchmark client.
package docbench

import (
	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/internal/docstore/memstore"
	"github.com/kart-io/docbench/internal/docstore/mongostore"
	"github.com/kart-io/docbench/internal/docstore/redisstore"
	docstoreopts "github.com/kart-io/docbench/pkg/options/docstore"
	mongoopts "github.com/kart-io/docbench/pkg/options/mongodb"
	redisopts "github.com/kart-io/docbench/pkg/options/redis"
	workloadopts "github.com/kart-io/docbench/pkg/options/workload"
)

// Config contains the resolved configuration of one docbench process.
type Config struct {
	Docstore *docstoreopts.Options
	MongoDB  *mongoopts.Options
	Redis    *redisopts.Options
	Workload *workloadopts.Options

	// Clock overrides the expiry time source. Nil uses the system clock.
	Clock docstore.Clock

	// memory is created on first use so that every phase of the process
	// sees the same in-process data.
	memory *memstore.Store
}

// Connector returns the connector of the selected backend.
func (c *Config) Connector() (docstore.Connector, error) {
	switch c.Docstore.Backend {
	case docstoreopts.BackendMongoDB:
		return mongostore.Connector(c.MongoDB), nil
	case docstoreopts.BackendRedis:
		return redisstore.Connector(c.Redis), nil
	case docstoreopts.BackendMemory:
		if c.memory == nil {
			c.memory = memstore.New()
		}
		return memstore.Connector(c.memory), nil
	default:
		return nil, docstore.ErrConfig.WithMessagef("unknown backend %q", c.Docstore.Backend)
	}
}

// StoreConfig builds the shared-handle configuration.
func (c *Config) StoreConfig() (docstore.Config, error) {
	connect, err := c.Connector()
	if err != nil {
		return docstore.Config{}, err
	}
	return docstore.Config{
		Connect:       connect,
		BatchSize:     c.Docstore.BatchSize,
		Upsert:        c.Docstore.Upsert,
		SweepInterval: c.Docstore.CleanupInterval,
		StopTimeout:   c.Docstore.StopTimeout,
		AuditLogPath:  c.Docstore.AuditLogPath,
		Clock:         c.Clock,
	}, nil
}
