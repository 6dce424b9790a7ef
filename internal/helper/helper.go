package helper

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const exporterNamespace = "tomato"

func metricStringCleanup(in string) string {
	return strings.Replace(in, "-", "_", -1)
}

// NodeDescription builds a description for a node-exporter-compatible
// metric. The name must already be the full upstream name, e.g.
// "node_cpu_seconds_total".
func NodeDescription(name, helpText string, labelNames ...string) *prometheus.Desc {
	return prometheus.NewDesc(metricStringCleanup(name), helpText, labelNames, nil)
}

// Description builds a description under the exporter's own namespace.
func Description(prefix, name, helpText string, labelNames ...string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(exporterNamespace, prefix, metricStringCleanup(name)),
		helpText,
		labelNames,
		nil,
	)
}

// Fields splits a line of command output on runs of whitespace, dropping
// leading and trailing blanks. Firmware versions disagree on column
// alignment, so parsers must never count spaces.
func Fields(line string) []string {
	return strings.Fields(strings.TrimSpace(line))
}

// Lines splits command output into lines, tolerating CRLF endings and
// trailing whitespace.
func Lines(body string) []string {
	body = strings.Replace(body, "\r\n", "\n", -1)
	return strings.Split(strings.TrimRight(body, " \t\n"), "\n")
}
