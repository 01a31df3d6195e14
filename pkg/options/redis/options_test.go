package redis

import (
	"encoding/json"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docbench/pkg/errors"
)

func TestMarshalJSONRedactsPassword(t *testing.T) {
	o := NewOptions()
	o.Password = "supersecret"

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "supersecret")
	assert.Contains(t, string(data), `"password":"[REDACTED]"`)
	assert.Contains(t, string(data), `"host":"127.0.0.1"`)

	o.Password = ""
	data, err = json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"password":""`)
}

func TestString(t *testing.T) {
	o := NewOptions()
	o.Password = "supersecret"
	assert.Equal(t, "Redis{host=127.0.0.1, port=6379, password=[REDACTED], database=0}", o.String())
	assert.Equal(t, "127.0.0.1:6379", o.Addr())
}

func TestCompleteReadsEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "fromenv")
	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Equal(t, "fromenv", o.Password)
}

func TestValidate(t *testing.T) {
	assert.Empty(t, NewOptions().Validate())

	o := NewOptions()
	o.Host = ""
	o.Port = 0
	o.Database = 16
	o.ScanPage = 0
	errs := o.Validate()
	require.Len(t, errs, 4)
	for _, err := range errs {
		assert.True(t, errors.IsCode(err, errors.ErrInvalidConfig.Code))
	}
}

func TestAddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs, "backend")

	require.NoError(t, fs.Parse([]string{"--backend.redis.port=6380", "--backend.redis.database=2"}))
	assert.Equal(t, 6380, o.Port)
	assert.Equal(t, 2, o.Database)
}
