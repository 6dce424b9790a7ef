package metrics

import (
	"regexp"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("memory", newMemoryCollector)
}

const memoryCommand = "cat /proc/meminfo"

// MemTotal:       255700 kB — fields without the kB suffix (HugePages
// counts) are unitless and keep their raw value.
var memLineRe = regexp.MustCompile(`^([A-Za-z0-9_()]+):\s+([0-9]+)(\s+kB)?\s*$`)

type memoryCollector struct{}

func newMemoryCollector() collector.Collector {
	return &memoryCollector{}
}

func (c *memoryCollector) Name() string { return "memory" }

func (c *memoryCollector) Describe(ch chan<- *prometheus.Desc) {
	// metric names depend on the fields the firmware reports
}

func (c *memoryCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.RunCommand(ctx.Ctx, memoryCommand)
	if err != nil {
		return err
	}

	fields, err := parseMemInfo(body)
	if err != nil {
		return err
	}

	for _, f := range fields {
		name := "node_memory_" + f.name
		if f.inBytes {
			name += "_bytes"
		}
		desc := helper.NodeDescription(name, "Memory information field "+f.name+".")
		ctx.Ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, f.value)
	}

	return nil
}

type memField struct {
	name    string
	value   float64
	inBytes bool
}

// parseMemInfo reads /proc/meminfo key/value lines in input order.
// Unrecognized lines are skipped so one odd field never costs the whole
// collector, but a body with no matches at all is malformed.
func parseMemInfo(body string) ([]memField, error) {
	var fields []memField

	for _, line := range helper.Lines(body) {
		m := memLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}

		f := memField{name: sanitizeMemName(m[1]), value: v}
		if m[3] != "" {
			f.value *= 1024
			f.inBytes = true
		}
		fields = append(fields, f)
	}

	if len(fields) == 0 {
		return nil, newParseError(memoryCommand, "no meminfo fields found", body)
	}

	return fields, nil
}

var memNameCleanRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeMemName(name string) string {
	return memNameCleanRe.ReplaceAllString(name, "_")
}
