package collector

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tomato-exporter/internal/config"
)

func TestDiscoverDevicesNoResolver(t *testing.T) {
	orig := resolvConf
	resolvConf = filepath.Join(t.TempDir(), "resolv.conf")
	t.Cleanup(func() { resolvConf = orig })

	// a resolv.conf without nameserver entries must fail the lookup, not
	// panic on a missing server
	require.NoError(t, ioutil.WriteFile(resolvConf, []byte("search example.com\n"), 0644))

	cfg := &config.Config{
		Devices: []*config.Device{
			{Srv: config.SrvRecord{Record: "_tomato._tcp.example.com"}},
		},
	}

	err := DiscoverDevices(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no DNS server")
}

func TestDiscoverDevicesSkipsStaticEntries(t *testing.T) {
	orig := resolvConf
	resolvConf = filepath.Join(t.TempDir(), "missing")
	t.Cleanup(func() { resolvConf = orig })

	cfg := &config.Config{
		Devices: []*config.Device{
			{Name: "karabor", Address: "192.168.1.1"},
		},
	}

	// statically addressed devices never touch the resolver
	require.NoError(t, DiscoverDevices(cfg))
	assert.Equal(t, "192.168.1.1", cfg.Devices[0].Address)
}
