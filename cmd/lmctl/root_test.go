package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/config"
)

func run(t *testing.T, gc *cmdtypes.GlobalConfig, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(gc)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootFlags(t *testing.T) {
	cmd := newRootCmd(&cmdtypes.GlobalConfig{})

	f := cmd.PersistentFlags()
	require.NotNil(t, f.Lookup("config"))
	assert.Equal(t, "c", f.Lookup("config").Shorthand)
	require.NotNil(t, f.Lookup("verbose"))
	assert.Equal(t, "v", f.Lookup("verbose").Shorthand)
	require.NotNil(t, f.Lookup("timestamps"))
	assert.Equal(t, "true", f.Lookup("timestamps").DefValue)
}

func TestVersion(t *testing.T) {
	stdout, err := run(t, &cmdtypes.GlobalConfig{}, "--config", filepath.Join(t.TempDir(), "none.yaml"), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "lmctl:")
	assert.Contains(t, stdout, "Schema:")
}

func TestInitializeGlobalsLoadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config.DefaultConfigTemplate), 0o600))

	gc := &cmdtypes.GlobalConfig{}
	_, err := run(t, gc, "--config", path, "--timestamps=false", "version")
	require.NoError(t, err)

	require.NoError(t, gc.ConfigErr)
	require.NotNil(t, gc.Config)
	assert.Equal(t, path, gc.ConfigPath)
	assert.Equal(t, "dev", gc.Config.DefaultEnvironment)
	assert.Equal(t, "false", gc.Flags["log.timestamps"])
}

func TestInitializeGlobalsKeepsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environments:\n  dev:\n    authMode: token\n"), 0o600))

	gc := &cmdtypes.GlobalConfig{}
	_, err := run(t, gc, "--config", path, "version")
	require.NoError(t, err, "commands without an environment still run")
	assert.Error(t, gc.ConfigErr)
}

func TestConfigInitThroughRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	stdout, err := run(t, &cmdtypes.GlobalConfig{}, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Config file created")
	assert.FileExists(t, path)
}
