package metrics

import (
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("uname", newUnameCollector)
}

const unameCommand = "uname -a"

// Linux karabor 2.6.22.19 #31 Thu Jul 16 01:30:27 CEST 2020 mips Tomato
var unameRe = regexp.MustCompile(`^([A-Za-z]+) ([A-Za-z0-9_.-]+) ([0-9][0-9a-z.-]*) (.*) ([A-Za-z0-9_-]+) ([A-Za-z0-9]+)$`)

type unameCollector struct {
	desc *prometheus.Desc
}

func newUnameCollector() collector.Collector {
	return &unameCollector{
		desc: helper.NodeDescription(
			"node_uname_info",
			"Labeled system information as provided by the uname system call.",
			"domainname", "machine", "nodename", "release", "sysname", "version",
		),
	}
}

func (c *unameCollector) Name() string { return "uname" }

func (c *unameCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *unameCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.RunCommand(ctx.Ctx, unameCommand)
	if err != nil {
		return err
	}

	u, err := parseUname(body)
	if err != nil {
		return err
	}

	ctx.Ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, 1,
		u.domainname, u.machine, u.nodename, u.release, u.sysname, u.version)

	return nil
}

type unameInfo struct {
	domainname string
	machine    string
	nodename   string
	release    string
	sysname    string
	version    string
}

func parseUname(body string) (*unameInfo, error) {
	m := unameRe.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return nil, newParseError(unameCommand, "unexpected uname shape", body)
	}

	return &unameInfo{
		// busybox uname -a has no domainname field
		domainname: "(none)",
		sysname:    m[1],
		nodename:   m[2],
		release:    m[3],
		version:    m[4],
		machine:    m[5],
	}, nil
}
