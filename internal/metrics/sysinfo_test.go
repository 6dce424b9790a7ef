package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// trimmed status-data.jsx capture from an Asus RT-N66U
const statusDataBody = `//
nvram = {
	'router_name': 'karabor',
	'wan_domain': 'home',
	'lan_ipaddr': '192.168.2.1',
	't_model_name': 'Asus RT-N66U',
	'http_id': 'TID4bad0f0eba40bd0c'};

//
sysinfo = {
	uptime: 1391983,
	uptime_s: '16 days, 02:39:43',
	loads: [224, 2400, 0],
	totalram: 261836800,
	freeram: 227065856,
	bufferram: 5394432,
	cached: 15699968,
	totalswap: 0,
	freeswap: 0,
	totalfreeram: 248160256,
	procs: 35,
	flashsize: 32,
	systemtype: 'Broadcom BCM5300 chip rev 1 pkg 0',
	cpumodel: 'MIPS 74K V4.9',
	bogomips: '299.82',
	cpuclk: '600',
	cfeversion: '1.0.1.4'};

wlstats = [ { radio: 1, client: 0, channel:  6, mhz: 2437, rate: 234, ctrlsb: 'none', nbw: 20, rssi: 0, noise: -99, intf: 0 }
,{ radio: 1, client: 0, channel:  56, mhz: 5280, rate: 300, ctrlsb: 'upper', nbw: 40, rssi: 0, noise: -99, intf: 0 }
];
`

func statusDataRunner() *fakeRunner {
	return &fakeRunner{pages: map[string]string{statusDataPage: statusDataBody}}
}

func TestSysinfoCollector(t *testing.T) {
	samples := collect(t, newSysinfoCollector(), statusDataRunner())

	require.Len(t, samples, 9)
	assertSample(t, samples, "node_load1", nil, 224.0/65536)
	assertSample(t, samples, "node_load5", nil, 2400.0/65536)
	assertSample(t, samples, "node_load15", nil, 0)
	assertSample(t, samples, "node_memory_MemTotal_bytes", nil, 261836800)
	assertSample(t, samples, "node_memory_MemFree_bytes", nil, 227065856)
	assertSample(t, samples, "node_memory_Buffers_bytes", nil, 5394432)
	assertSample(t, samples, "node_memory_SwapTotal_bytes", nil, 0)
	assertSample(t, samples, "node_memory_SwapFree_bytes", nil, 0)
	assertSample(t, samples, "node_time_seconds", nil, 1391983)
}

func TestSysinfoCollectorMissingBlob(t *testing.T) {
	runner := &fakeRunner{pages: map[string]string{statusDataPage: "<html>login please</html>"}}

	_, err := tryCollect(t, newSysinfoCollector(), runner)

	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected parse error, got %v", err)
}

func TestSysinfoCollectorShortLoads(t *testing.T) {
	runner := &fakeRunner{pages: map[string]string{
		statusDataPage: "sysinfo = {\n\tuptime: 10,\n\tloads: [224],\n\ttotalram: 1024\n};",
	}}

	_, err := tryCollect(t, newSysinfoCollector(), runner)

	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected parse error, got %v", err)
}

func TestJsObjectToJSON(t *testing.T) {
	js := "{ radio: 1, ctrlsb: 'none', nbw: 20 }"
	require.JSONEq(t, `{"radio": 1, "ctrlsb": "none", "nbw": 20}`, jsObjectToJSON(js))
}
