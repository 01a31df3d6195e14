package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docbench/pkg/app/cliflag"
)

type testOptions struct {
	Threads int    `mapstructure:"threads"`
	Name    string `mapstructure:"name"`

	completed bool
	invalid   bool
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("test")
	fs.IntVar(&o.Threads, "threads", 1, "threads")
	fs.StringVar(&o.Name, "name", "default", "name")
	return fss
}

func (o *testOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *testOptions) Validate() error {
	if o.invalid {
		return errors.New("invalid")
	}
	return nil
}

func run(t *testing.T, opts *testOptions, args ...string) error {
	t.Helper()
	var ran bool
	a := NewApp(
		WithName("apptest"),
		WithOptions(opts),
		WithNoVersion(),
		WithSilence(),
		WithCommand("sub", "test subcommand", func(context.Context, []string) error {
			ran = true
			return nil
		}),
	)
	a.Command().SetArgs(append(args, "sub"))
	err := a.Command().ExecuteContext(context.Background())
	if err == nil {
		assert.True(t, ran)
	}
	return err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apptest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigPrecedence(t *testing.T) {
	cfg := writeConfig(t, "threads: 3\nname: fromfile\n")
	t.Setenv("APPTEST_NAME", "fromenv")

	opts := &testOptions{}
	require.NoError(t, run(t, opts, "--config", cfg, "--env-file", ""))
	assert.Equal(t, 3, opts.Threads)
	assert.Equal(t, "fromenv", opts.Name)
	assert.True(t, opts.completed)

	opts = &testOptions{}
	require.NoError(t, run(t, opts, "--config", cfg, "--env-file", "", "--threads=7"))
	assert.Equal(t, 7, opts.Threads)
}

func TestDotenvFile(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("APPTEST_THREADS=9\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("APPTEST_THREADS") })

	opts := &testOptions{}
	require.NoError(t, run(t, opts, "--config", writeConfig(t, "name: x\n"), "--env-file", env))
	assert.Equal(t, 9, opts.Threads)
}

func TestMissingDotenvIsIgnored(t *testing.T) {
	opts := &testOptions{}
	require.NoError(t, run(t, opts, "--config", writeConfig(t, ""), "--env-file", filepath.Join(t.TempDir(), "none")))
	assert.Equal(t, 1, opts.Threads)
}

func TestValidateFailureStopsCommand(t *testing.T) {
	opts := &testOptions{invalid: true}
	require.Error(t, run(t, opts, "--config", writeConfig(t, "")))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("APPTEST_HOST", "db.internal")
	opts := &testOptions{}
	require.NoError(t, run(t, opts, "--config", writeConfig(t, "name: ${APPTEST_HOST}:$UNSET_APPTEST_VAR\n"), "--env-file", ""))
	assert.Equal(t, "db.internal:$UNSET_APPTEST_VAR", opts.Name)
}
