package redis

import (
	"context"

	"github.com/kart-io/docbench/pkg/component/storage"
	options "github.com/kart-io/docbench/pkg/options/redis"
)

// Factory implements storage.Factory for Redis connections.
type Factory struct {
	opts *options.Options
}

// Compile-time check that Factory implements storage.Factory.
var _ storage.Factory = (*Factory)(nil)

// NewFactory creates a factory that connects with opts.
func NewFactory(opts *options.Options) *Factory {
	return &Factory{opts: opts}
}

// Create connects a new client.
func (f *Factory) Create(ctx context.Context) (storage.Client, error) {
	c, err := New(ctx, f.opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}
