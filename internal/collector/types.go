package collector

import (
	"context"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/config"
)

// CommandRunner is the slice of the console client that collectors use.
// Implemented by tomato.Client; tests substitute fakes.
type CommandRunner interface {
	RunCommand(ctx context.Context, command string) (string, error)
	FetchPage(ctx context.Context, page string, form url.Values) (string, error)
}

// Context carries everything one collector needs for one device scrape.
type Context struct {
	Ctx    context.Context
	Ch     chan<- prometheus.Metric
	Device *config.Device
	Client CommandRunner
}

// Collector pairs the command(s) for one metric family with the parser
// that understands their output.
type Collector interface {
	Name() string
	Describe(ch chan<- *prometheus.Desc)
	Collect(ctx *Context) error
}
