package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("cpu", newCPUCollector)
}

const cpuCommand = "cat /proc/stat"

// column order of /proc/stat; older kernels stop after idle
var cpuModes = []string{"user", "nice", "system", "idle", "iowait", "irq", "softirq", "steal"}

type cpuCollector struct {
	desc *prometheus.Desc
}

func newCPUCollector() collector.Collector {
	return &cpuCollector{
		desc: helper.NodeDescription(
			"node_cpu_seconds_total",
			"Seconds the cpus spent in each mode.",
			"cpu", "mode",
		),
	}
}

func (c *cpuCollector) Name() string { return "cpu" }

func (c *cpuCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *cpuCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.RunCommand(ctx.Ctx, cpuCommand)
	if err != nil {
		return err
	}

	stats, err := parseCPUStat(body)
	if err != nil {
		return err
	}

	for _, s := range stats {
		for i, v := range s.seconds {
			ctx.Ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, v, s.cpu, cpuModes[i])
		}
	}

	return nil
}

type cpuStat struct {
	cpu     string
	seconds []float64
}

// parseCPUStat extracts the per-cpu jiffie counters from /proc/stat. The
// aggregate "cpu" line and the intr/ctxt/btime noise are skipped. Columns
// past idle are optional; whatever is present is emitted.
func parseCPUStat(body string) ([]cpuStat, error) {
	var stats []cpuStat

	for _, line := range helper.Lines(body) {
		fields := helper.Fields(line)
		if len(fields) == 0 || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}

		id := strings.TrimPrefix(fields[0], "cpu")
		if id == "" {
			continue
		}
		if _, err := strconv.Atoi(id); err != nil {
			continue
		}

		if len(fields) < 5 {
			return nil, newParseError(cpuCommand, "too few jiffie columns", line)
		}

		n := len(fields) - 1
		if n > len(cpuModes) {
			n = len(cpuModes)
		}

		s := cpuStat{cpu: id, seconds: make([]float64, 0, n)}
		for _, f := range fields[1 : n+1] {
			j, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, newParseError(cpuCommand, "non-numeric jiffie count", line)
			}
			// jiffies at USER_HZ 100
			s.seconds = append(s.seconds, j/100)
		}
		stats = append(stats, s)
	}

	if len(stats) == 0 {
		return nil, newParseError(cpuCommand, "no per-cpu lines found", body)
	}

	return stats, nil
}
