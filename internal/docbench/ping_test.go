package docbench

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/docbench/pkg/component/redis"
)

func TestWriteRedisStats(t *testing.T) {
	tests := []struct {
		name string
		in   *redis.HealthStats
		want string
	}{
		{
			name: "healthy",
			in: &redis.HealthStats{
				Healthy:   true,
				Keys:      42,
				PoolStats: &redis.PoolStats{Hits: 3, Misses: 1, TotalConns: 2, IdleConns: 1},
			},
			want: "redis\tkeys\t42\n" +
				"redis\tpool\thits=3 misses=1 timeouts=0 total=2 idle=1 stale=0\n",
		},
		{
			name: "unhealthy keeps pool counters",
			in: &redis.HealthStats{
				Error:     "dial tcp: refused",
				PoolStats: &redis.PoolStats{Timeouts: 1},
			},
			want: "redis\tpool\thits=0 misses=0 timeouts=1 total=0 idle=0 stale=0\n",
		},
		{
			name: "nothing known",
			in:   &redis.HealthStats{Error: "closed"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			writeRedisStats(&out, "redis", tt.in)
			assert.Equal(t, tt.want, out.String())
		})
	}
}
