package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docbench/pkg/component/storage"
	"github.com/kart-io/docbench/pkg/errors"
	options "github.com/kart-io/docbench/pkg/options/redis"
)

func TestNewNilOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, storage.ErrInvalidConfig.Code))
}

func TestNewInvalidOptions(t *testing.T) {
	opts := options.NewOptions()
	opts.Port = -1

	_, err := New(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.GetCategory(errors.GetCode(err)))
}

func TestNewUnreachable(t *testing.T) {
	opts := options.NewOptions()
	opts.Port = 1
	opts.MaxRetries = -1
	opts.DialTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewFactory(opts).Create(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, storage.ErrConnectionFailed.Code))
}

func TestHealthWithStatsUnreachable(t *testing.T) {
	c := &Client{
		client: goredis.NewClient(&goredis.Options{
			Addr:        "127.0.0.1:1",
			MaxRetries:  -1,
			DialTimeout: 200 * time.Millisecond,
		}),
		opts: options.NewOptions(),
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stats := c.HealthWithStats(ctx)
	assert.False(t, stats.Healthy)
	assert.NotEmpty(t, stats.Error)
	assert.Zero(t, stats.Keys)
	require.NotNil(t, stats.PoolStats)
	assert.Positive(t, stats.Latency)
}
