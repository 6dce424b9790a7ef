package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const netdevPageBody = `
netdev={ 'eth0':{rx:0xab7666a1,tx:0x6a2c1014},'vlan1':{rx:0x2510e054,tx:0x6d33c0a8} };
`

func TestBandwidthCollector(t *testing.T) {
	runner := &fakeRunner{pages: map[string]string{bandwidthPage: netdevPageBody}}

	samples := collect(t, newBandwidthCollector(), runner)

	require.Len(t, samples, 4)
	assertSample(t, samples, "node_network_receive_bytes_total", map[string]string{"device": "eth0"}, 2876663457)
	assertSample(t, samples, "node_network_transmit_bytes_total", map[string]string{"device": "eth0"}, 1781272596)
	assertSample(t, samples, "node_network_receive_bytes_total", map[string]string{"device": "vlan1"}, 621862996)
	assertSample(t, samples, "node_network_transmit_bytes_total", map[string]string{"device": "vlan1"}, 1832108200)
}

func TestBandwidthCollectorMalformed(t *testing.T) {
	runner := &fakeRunner{pages: map[string]string{bandwidthPage: "<html>login please</html>"}}

	_, err := tryCollect(t, newBandwidthCollector(), runner)

	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected parse error, got %v", err)
}
