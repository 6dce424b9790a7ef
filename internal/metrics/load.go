package metrics

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("load", newLoadCollector)
}

const loadCommand = "cat /proc/loadavg"

// 0.01 0.02 0.03 2/38 23618
var loadRe = regexp.MustCompile(`^([0-9]+\.[0-9]+)\s+([0-9]+\.[0-9]+)\s+([0-9]+\.[0-9]+)\s+([0-9]+)/([0-9]+)\s+([0-9]+)`)

type loadCollector struct {
	load1Desc  *prometheus.Desc
	load5Desc  *prometheus.Desc
	load15Desc *prometheus.Desc
	pidsDesc   *prometheus.Desc
}

func newLoadCollector() collector.Collector {
	return &loadCollector{
		load1Desc:  helper.NodeDescription("node_load1", "1m load average."),
		load5Desc:  helper.NodeDescription("node_load5", "5m load average."),
		load15Desc: helper.NodeDescription("node_load15", "15m load average."),
		pidsDesc:   helper.NodeDescription("node_processes_pids", "Number of PIDs."),
	}
}

func (c *loadCollector) Name() string { return "load" }

func (c *loadCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.load1Desc
	ch <- c.load5Desc
	ch <- c.load15Desc
	ch <- c.pidsDesc
}

func (c *loadCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.RunCommand(ctx.Ctx, loadCommand)
	if err != nil {
		return err
	}

	info, err := parseLoadAvg(body)
	if err != nil {
		return err
	}

	ctx.Ch <- prometheus.MustNewConstMetric(c.load1Desc, prometheus.GaugeValue, info.load1)
	ctx.Ch <- prometheus.MustNewConstMetric(c.load5Desc, prometheus.GaugeValue, info.load5)
	ctx.Ch <- prometheus.MustNewConstMetric(c.load15Desc, prometheus.GaugeValue, info.load15)
	ctx.Ch <- prometheus.MustNewConstMetric(c.pidsDesc, prometheus.GaugeValue, info.totalProcs)

	return nil
}

type loadInfo struct {
	load1      float64
	load5      float64
	load15     float64
	totalProcs float64
}

func parseLoadAvg(body string) (*loadInfo, error) {
	m := loadRe.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return nil, newParseError(loadCommand, "unexpected loadavg shape", body)
	}

	vals := make([]float64, 0, 4)
	for _, idx := range []int{1, 2, 3, 5} {
		v, err := strconv.ParseFloat(m[idx], 64)
		if err != nil {
			return nil, newParseError(loadCommand, "non-numeric loadavg field", body)
		}
		vals = append(vals, v)
	}

	return &loadInfo{load1: vals[0], load5: vals[1], load15: vals[2], totalProcs: vals[3]}, nil
}
