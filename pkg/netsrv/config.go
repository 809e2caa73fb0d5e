package netsrv

import (
	"flag"
	"time"
)

// Config is the TCP ingestion server's runtime configuration.
type Config struct {
	BindPort int `yaml:"bind_port"`

	// PeerRateLimit bounds samples accepted per second from a single peer
	// connection. Zero means unlimited. This is an addition beyond the
	// original protocol: a slow consumer throttle, never a correctness
	// requirement, off by default so it never changes ingestion semantics.
	PeerRateLimit float64 `yaml:"peer_rate_limit"`
	// PeerRateBurst bounds the token-bucket burst size when PeerRateLimit
	// is set.
	PeerRateBurst int `yaml:"peer_rate_burst"`

	// ShutdownGracePeriod is defaulted and can be loaded from YAML, but
	// Server does not read it: shutdown waits for every peer goroutine to
	// exit, with no upper bound.
	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period"`
}

// RegisterFlagsAndApplyDefaults registers flags under prefix (a dotted
// path with no trailing separator, e.g. "net") and applies defaults,
// following the teacher's sub-config convention.
func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	name := func(flagName string) string {
		if prefix == "" {
			return flagName
		}
		return prefix + "." + flagName
	}

	f.IntVar(&c.BindPort, name("bind-port"), 8130, "TCP port to accept sample-batch connections on, bound on the IPv6 unspecified address.")
	f.Float64Var(&c.PeerRateLimit, name("peer-rate-limit"), 0, "Maximum samples per second accepted from a single peer connection; 0 disables the limit.")
	f.IntVar(&c.PeerRateBurst, name("peer-rate-burst"), 1000, "Token-bucket burst size used when peer-rate-limit is set.")
	c.ShutdownGracePeriod = 5 * time.Second
}
