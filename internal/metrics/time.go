package metrics

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("time", newTimeCollector)
}

// one round trip for both values: the device is slow, batch where possible
const timeCommand = "date +%s && cat /proc/uptime"

// 1598394934
// 1810779.30 1804583.20
var timeRe = regexp.MustCompile(`(?s)([0-9]+)\s*\n\s*([0-9]+\.[0-9]+)\s+[0-9]+\.[0-9]+`)

type timeCollector struct {
	timeDesc *prometheus.Desc
	bootDesc *prometheus.Desc
}

func newTimeCollector() collector.Collector {
	return &timeCollector{
		timeDesc: helper.NodeDescription("node_time_seconds", "System time in seconds since epoch (1970)."),
		bootDesc: helper.NodeDescription("node_boot_time_seconds", "Node boot time, in unixtime."),
	}
}

func (c *timeCollector) Name() string { return "time" }

func (c *timeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.timeDesc
	ch <- c.bootDesc
}

func (c *timeCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.RunCommand(ctx.Ctx, timeCommand)
	if err != nil {
		return err
	}

	times, err := parseTimes(body)
	if err != nil {
		return err
	}

	ctx.Ch <- prometheus.MustNewConstMetric(c.timeDesc, prometheus.GaugeValue, times.now)
	ctx.Ch <- prometheus.MustNewConstMetric(c.bootDesc, prometheus.GaugeValue, times.boot)

	return nil
}

type times struct {
	now  float64
	boot float64
}

func parseTimes(body string) (*times, error) {
	m := timeRe.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return nil, newParseError(timeCommand, "unexpected date/uptime shape", body)
	}

	now, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, newParseError(timeCommand, "non-numeric timestamp", body)
	}
	up, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, newParseError(timeCommand, "non-numeric uptime", body)
	}

	return &times{now: now, boot: now - math.Floor(up)}, nil
}
