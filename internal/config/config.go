// Package config assembles the root configuration for the tsdb-server
// binary: logging, rewind-snapshot retention, and the ingestion server's
// own sub-config, all loadable from a YAML file and overridable by flags.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/grafana/tsdb/pkg/netsrv"
)

// Config is the root config for the tsdb-server binary.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	RewindSnapshotCapacity int `yaml:"rewind_snapshot_capacity"`

	SessionPath string `yaml:"session_path,omitempty"`

	Net netsrv.Config `yaml:"net,omitempty"`
}

// NewDefaultConfig returns a Config with every flag default applied, as if
// no command-line flags or config file had been given.
func NewDefaultConfig() *Config {
	c := &Config{}
	fs := flag.NewFlagSet("", flag.PanicOnError)
	c.RegisterFlagsAndApplyDefaults("", fs)
	return c
}

// RegisterFlagsAndApplyDefaults registers every flag under prefix and sets
// default values, following the sub-config composition pattern: each
// component config owns its own RegisterFlagsAndApplyDefaults and is
// invoked with its own sub-prefix.
func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	c.LogLevel = "info"
	c.LogFormat = "logfmt"
	c.RewindSnapshotCapacity = 16

	f.StringVar(&c.LogLevel, prefixed(prefix, "log.level"), c.LogLevel, "Log level: debug, info, warn, or error.")
	f.StringVar(&c.LogFormat, prefixed(prefix, "log.format"), c.LogFormat, "Log format: logfmt or json.")
	f.IntVar(&c.RewindSnapshotCapacity, prefixed(prefix, "rewind-snapshot-capacity"), c.RewindSnapshotCapacity, "Number of rewind-backup diagnostic snapshots to retain in memory, 0 to disable.")
	f.StringVar(&c.SessionPath, prefixed(prefix, "session-path"), "", "Path to a dashboard session file to load on startup, if any.")

	c.Net.RegisterFlagsAndApplyDefaults(prefixed(prefix, "net"), f)
}

func prefixed(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Load reads and parses a YAML config file, applying it on top of whatever
// flag defaults have already been set on c.
func Load(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ConfigWarning bundles a message and explanation, mirroring the
// suspect-but-not-fatal configuration problems CheckConfig reports.
type ConfigWarning struct {
	Message string
	Explain string
}

// CheckConfig reports non-fatal configuration problems worth surfacing at
// startup without refusing to start.
func (c *Config) CheckConfig() []ConfigWarning {
	var warnings []ConfigWarning

	if c.RewindSnapshotCapacity < 0 {
		warnings = append(warnings, ConfigWarning{
			Message: "rewind_snapshot_capacity is negative, treating as 0",
			Explain: "a negative capacity disables the feature the same way 0 does; prefer 0 to be explicit",
		})
	}

	if c.Net.PeerRateLimit < 0 {
		warnings = append(warnings, ConfigWarning{
			Message: "net.peer_rate_limit is negative, treating as unlimited",
			Explain: "a negative rate has no meaning; use 0 to mean unlimited",
		})
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, ConfigWarning{
			Message: fmt.Sprintf("unrecognized log_level %q, falling back to info", c.LogLevel),
		})
	}

	return warnings
}
