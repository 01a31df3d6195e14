package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docbench/pkg/errors"
	options "github.com/kart-io/docbench/pkg/options/mongodb"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		database string
		readPref string
		write    string
	}{
		{"default url", options.DefaultURL, "ycsb", "primary", "w=1"},
		{"named database", "mongodb://localhost:27017/bench", "bench", "primary", "w=1"},
		{"no path", "mongodb://localhost:27017", "ycsb", "primary", "w=1"},
		{"admin path", "mongodb://localhost:27017/admin", "ycsb", "primary", "w=1"},
		{"majority", "mongodb://localhost/bench?w=majority&readPreference=secondaryPreferred", "bench", "secondaryPreferred", "w=majority"},
		{"journaled", "mongodb://localhost/bench?w=2&journal=true", "bench", "primary", "w=2,j=true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.database, info.Database)
			assert.Equal(t, tt.readPref, info.ReadPreference)
			assert.Equal(t, tt.write, info.WriteConcern)
		})
	}
}

func TestParseURLRejects(t *testing.T) {
	for _, raw := range []string{"", "redis://localhost", "localhost:27017/ycsb"} {
		_, err := ParseURL(raw)
		assert.True(t, errors.IsCode(err, errors.ErrInvalidConfig.Code), "url %q: %v", raw, err)
		assert.Equal(t, errors.CategoryConfig, errors.GetCategory(errors.GetCode(err)))
	}
}
