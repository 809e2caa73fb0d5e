package netsrv_test

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/tsdb/pkg/netsrv"
)

func TestConfigRegistersPrefixedFlags(t *testing.T) {
	var c netsrv.Config
	fs := flag.NewFlagSet("", flag.PanicOnError)
	c.RegisterFlagsAndApplyDefaults("net", fs)

	require.NotNil(t, fs.Lookup("net.bind-port"))
	require.NotNil(t, fs.Lookup("net.peer-rate-limit"))
	require.Equal(t, 8130, c.BindPort)
}

func TestConfigRegistersUnprefixedFlags(t *testing.T) {
	var c netsrv.Config
	fs := flag.NewFlagSet("", flag.PanicOnError)
	c.RegisterFlagsAndApplyDefaults("", fs)

	require.NotNil(t, fs.Lookup("bind-port"))
}
