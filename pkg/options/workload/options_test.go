package workload

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	o := NewOptions()
	assert.Empty(t, o.Validate())
	assert.InDelta(t, 1.0, o.Proportions.Total(), 1e-9)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"empty table", func(o *Options) { o.Table = "" }},
		{"negative records", func(o *Options) { o.RecordCount = -1 }},
		{"no fields", func(o *Options) { o.FieldCount = 0 }},
		{"zero scan length", func(o *Options) { o.MaxScanLength = 0 }},
		{"negative ttl", func(o *Options) { o.TTL = -5 }},
		{"zero cardinality", func(o *Options) { o.MetaCardinality = 0 }},
		{"unknown distribution", func(o *Options) { o.Distribution = "hotspot" }},
		{"negative weight", func(o *Options) { o.Proportions.Scan = -0.1 }},
		{"all weights zero", func(o *Options) { o.Proportions = Proportions{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			assert.Len(t, o.Validate(), 1)
		})
	}
}

func TestAddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"-t", "8",
		"--workload.proportion.read-meta=0.5",
		"--workload.distribution=zipfian",
	}))
	assert.Equal(t, 8, o.Threads)
	assert.Equal(t, 0.5, o.Proportions.ReadMeta)
	assert.Equal(t, DistributionZipfian, o.Distribution)
}
