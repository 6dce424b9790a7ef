package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("filesystem", newFilesystemCollector)
}

// busybox df has no fstype column, so the mount table rides along in the
// same round trip
const filesystemCommand = "cat /proc/mounts && df -kP"

var filesystemLabels = []string{"device", "mountpoint", "fstype"}

type filesystemCollector struct {
	sizeDesc  *prometheus.Desc
	freeDesc  *prometheus.Desc
	availDesc *prometheus.Desc
}

func newFilesystemCollector() collector.Collector {
	return &filesystemCollector{
		sizeDesc:  helper.NodeDescription("node_filesystem_size_bytes", "Filesystem size in bytes.", filesystemLabels...),
		freeDesc:  helper.NodeDescription("node_filesystem_free_bytes", "Filesystem free space in bytes.", filesystemLabels...),
		availDesc: helper.NodeDescription("node_filesystem_avail_bytes", "Filesystem space available to non-root users in bytes.", filesystemLabels...),
	}
}

func (c *filesystemCollector) Name() string { return "filesystem" }

func (c *filesystemCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sizeDesc
	ch <- c.freeDesc
	ch <- c.availDesc
}

func (c *filesystemCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.RunCommand(ctx.Ctx, filesystemCommand)
	if err != nil {
		return err
	}

	mounts, err := parseFilesystems(body)
	if err != nil {
		return err
	}

	for _, m := range mounts {
		labels := []string{m.device, m.mountpoint, m.fstype}
		ctx.Ch <- prometheus.MustNewConstMetric(c.sizeDesc, prometheus.GaugeValue, m.sizeBytes, labels...)
		ctx.Ch <- prometheus.MustNewConstMetric(c.freeDesc, prometheus.GaugeValue, m.freeBytes, labels...)
		ctx.Ch <- prometheus.MustNewConstMetric(c.availDesc, prometheus.GaugeValue, m.availBytes, labels...)
	}

	return nil
}

type filesystemStat struct {
	device     string
	mountpoint string
	fstype     string
	sizeBytes  float64
	freeBytes  float64
	availBytes float64
}

// parseFilesystems reads the batched mount table and df output. Rows
// before the df header fill a mountpoint→fstype map; rows after it carry
// the sizes. A router with no df-visible filesystems is a valid zero.
func parseFilesystems(body string) ([]filesystemStat, error) {
	fstypes := make(map[string]string)
	var stats []filesystemStat
	inDF := false

	for _, line := range helper.Lines(body) {
		fields := helper.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if !inDF {
			if fields[0] == "Filesystem" {
				inDF = true
				continue
			}
			// /proc/mounts: device mountpoint fstype options dump pass
			if len(fields) >= 3 {
				fstypes[fields[1]] = fields[2]
			}
			continue
		}

		// df -kP: device 1024-blocks used available capacity mountpoint
		if len(fields) < 6 {
			continue
		}

		size, err1 := strconv.ParseFloat(fields[1], 64)
		used, err2 := strconv.ParseFloat(fields[2], 64)
		avail, err3 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, newParseError(filesystemCommand, "non-numeric df column", line)
		}

		// mountpoints may contain spaces
		mountpoint := strings.Join(fields[5:], " ")

		fstype, ok := fstypes[mountpoint]
		if !ok {
			fstype = "unknown"
		}

		stats = append(stats, filesystemStat{
			device:     fields[0],
			mountpoint: mountpoint,
			fstype:     fstype,
			sizeBytes:  size * 1024,
			freeBytes:  (size - used) * 1024,
			availBytes: avail * 1024,
		})
	}

	if !inDF {
		return nil, newParseError(filesystemCommand, "df header not found", body)
	}

	return stats, nil
}
