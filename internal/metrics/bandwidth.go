package metrics

import (
	"net/url"
	"regexp"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("bandwidth", newBandwidthCollector)
}

const bandwidthPage = "update.cgi"

// netdev={ 'eth0':{rx:0xab7666a1,tx:0x6a2c1014},... };
var netdevEntryRe = regexp.MustCompile(`'([^']+)'\s*:\s*\{\s*rx\s*:\s*0x([0-9a-fA-F]+)\s*,\s*tx\s*:\s*0x([0-9a-fA-F]+)\s*\}`)

// bandwidthCollector reads interface byte counters from the bandwidth
// monitor page instead of the shell. Shell-free alternative to the
// network collector; disabled by default for the same duplicate-series
// reason as sysinfo.
type bandwidthCollector struct {
	rxDesc *prometheus.Desc
	txDesc *prometheus.Desc
}

func newBandwidthCollector() collector.Collector {
	return &bandwidthCollector{
		rxDesc: helper.NodeDescription("node_network_receive_bytes_total", "Network device statistic receive_bytes.", "device"),
		txDesc: helper.NodeDescription("node_network_transmit_bytes_total", "Network device statistic transmit_bytes.", "device"),
	}
}

func (c *bandwidthCollector) Name() string { return "bandwidth" }

func (c *bandwidthCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rxDesc
	ch <- c.txDesc
}

func (c *bandwidthCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.FetchPage(ctx.Ctx, bandwidthPage, url.Values{"exec": {"netdev"}})
	if err != nil {
		return err
	}

	measurements, err := parseNetdevPage(body)
	if err != nil {
		return err
	}

	for _, m := range measurements {
		ctx.Ch <- prometheus.MustNewConstMetric(c.rxDesc, prometheus.CounterValue, m.rx, m.device)
		ctx.Ch <- prometheus.MustNewConstMetric(c.txDesc, prometheus.CounterValue, m.tx, m.device)
	}

	return nil
}

type bandwidthMeasurement struct {
	device string
	rx     float64
	tx     float64
}

func parseNetdevPage(body string) ([]bandwidthMeasurement, error) {
	entries := netdevEntryRe.FindAllStringSubmatch(body, -1)
	if entries == nil {
		return nil, newParseError(bandwidthPage, "no netdev entries found", body)
	}

	measurements := make([]bandwidthMeasurement, 0, len(entries))
	for _, e := range entries {
		rx, err := strconv.ParseUint(e[2], 16, 64)
		if err != nil {
			return nil, newParseError(bandwidthPage, "bad rx counter for "+e[1], body)
		}
		tx, err := strconv.ParseUint(e[3], 16, 64)
		if err != nil {
			return nil, newParseError(bandwidthPage, "bad tx counter for "+e[1], body)
		}
		measurements = append(measurements, bandwidthMeasurement{device: e[1], rx: float64(rx), tx: float64(tx)})
	}

	return measurements, nil
}
