package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/tsdb/internal/config"
)

func TestNewDefaultConfigAppliesDefaults(t *testing.T) {
	c := config.NewDefaultConfig()

	require.Equal(t, "info", c.LogLevel)
	require.Equal(t, 8130, c.Net.BindPort)
	require.Equal(t, 16, c.RewindSnapshotCapacity)
	require.Empty(t, c.CheckConfig())
}

func TestCheckConfigWarnsOnUnrecognizedLogLevel(t *testing.T) {
	c := config.NewDefaultConfig()
	c.LogLevel = "verbose"

	warnings := c.CheckConfig()
	require.Len(t, warnings, 1)
}

func TestLoadOverridesDefaults(t *testing.T) {
	c := config.NewDefaultConfig()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nnet:\n  bind_port: 9000\n"), 0o644))

	require.NoError(t, config.Load(path, c))
	require.Equal(t, "debug", c.LogLevel)
	require.Equal(t, 9000, c.Net.BindPort)
}
