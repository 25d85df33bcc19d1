package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cliflag "k8s.io/component-base/cli/flag"
)

type testOptions struct {
	Addr      string `mapstructure:"addr"`
	completed bool
}

func (o *testOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fss.FlagSet("test").StringVar(&o.Addr, "addr", o.Addr, "test address")
	return fss
}

func (o *testOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *testOptions) Validate() error {
	return nil
}

func TestNewAppRegistersFlags(t *testing.T) {
	opts := &testOptions{Addr: ":1"}
	ran := false
	a := NewApp("flightlab-test", "test",
		WithOptions(opts),
		WithDefaultValidArgs(),
		WithSilence(),
		WithRunFunc(func() error {
			ran = true
			return nil
		}),
	)

	cmd := a.Command()
	assert.NotNil(t, cmd.Flags().Lookup("addr"))
	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.Error(t, cmd.Args(cmd, []string{"extra"}))
	assert.NoError(t, cmd.Args(cmd, nil))
	assert.False(t, ran)
}

func TestWithNoConfig(t *testing.T) {
	a := NewApp("flightlabctl", "test", WithNoConfig())
	assert.Nil(t, a.Command().Flags().Lookup("config"))
	assert.Nil(t, a.Command().RunE)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FLIGHTLAB_DOTENV_TEST=from-file\n"), 0o600))
	t.Setenv("FLIGHTLAB_DOTENV_TEST", "")
	require.NoError(t, os.Unsetenv("FLIGHTLAB_DOTENV_TEST"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("FLIGHTLAB_DOTENV_TEST"))
}

