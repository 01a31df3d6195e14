package cliflag

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedFlagSets(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("workload").Int("threads", 1, "worker count")
	fss.FlagSet("log").String("log.level", "info", "log level")
	fss.FlagSet("workload").Int("record-count", 10, "records")

	assert.Equal(t, []string{"workload", "log"}, fss.Order)

	fs := pflag.NewFlagSet("root", pflag.ContinueOnError)
	fss.AddTo(fs)
	require.NoError(t, fs.Parse([]string{"--threads=4"}))
	v, err := fs.GetInt("threads")
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	var buf bytes.Buffer
	PrintSections(&buf, fss, 80)
	assert.Contains(t, buf.String(), "Workload flags:")
	assert.Contains(t, buf.String(), "--log.level")
}
