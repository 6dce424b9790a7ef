package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("network", newNetworkCollector)
}

const networkCommand = "cat /proc/net/dev"

// /proc/net/dev column order after the interface name
var netColumns = []string{
	"receive_bytes", "receive_packets", "receive_errs", "receive_drop",
	"receive_fifo", "receive_frame", "receive_compressed", "receive_multicast",
	"transmit_bytes", "transmit_packets", "transmit_errs", "transmit_drop",
	"transmit_fifo", "transmit_colls", "transmit_carrier", "transmit_compressed",
}

type networkCollector struct {
	descriptions map[string]*prometheus.Desc
}

func newNetworkCollector() collector.Collector {
	c := &networkCollector{descriptions: make(map[string]*prometheus.Desc)}
	for _, col := range netColumns {
		c.descriptions[col] = helper.NodeDescription(
			"node_network_"+col+"_total",
			"Network device statistic "+col+".",
			"device",
		)
	}
	return c
}

func (c *networkCollector) Name() string { return "network" }

func (c *networkCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descriptions {
		ch <- d
	}
}

func (c *networkCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.RunCommand(ctx.Ctx, networkCommand)
	if err != nil {
		return err
	}

	stats, err := parseNetDev(body)
	if err != nil {
		return err
	}

	for _, s := range stats {
		for i, v := range s.counters {
			ctx.Ch <- prometheus.MustNewConstMetric(c.descriptions[netColumns[i]], prometheus.CounterValue, v, s.device)
		}
	}

	return nil
}

type netDevStat struct {
	device   string
	counters []float64
}

// parseNetDev reads interface counter rows. The device name can abut the
// first counter ("eth0:1369176365"), so the split happens on the first
// colon, not on whitespace. Short rows from older kernels emit whatever
// columns are present.
func parseNetDev(body string) ([]netDevStat, error) {
	var stats []netDevStat

	for _, line := range helper.Lines(body) {
		if strings.Contains(line, "|") {
			// header lines
			continue
		}
		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		fields := helper.Fields(rest)
		if len(fields) == 0 {
			return nil, newParseError(networkCommand, "interface row without counters", line)
		}

		n := len(fields)
		if n > len(netColumns) {
			n = len(netColumns)
		}

		s := netDevStat{device: name, counters: make([]float64, 0, n)}
		for _, f := range fields[:n] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, newParseError(networkCommand, "non-numeric interface counter", line)
			}
			s.counters = append(s.counters, v)
		}
		stats = append(stats, s)
	}

	if len(stats) == 0 {
		return nil, newParseError(networkCommand, "no interface rows found", body)
	}

	return stats, nil
}
