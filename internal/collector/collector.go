package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"tomato-exporter/internal/config"
	"tomato-exporter/internal/helper"
	"tomato-exporter/internal/tomato"
)

// DefaultTimeout bounds each console request against a device.
const DefaultTimeout = tomato.DefaultTimeout

var (
	upDesc = helper.Description(
		"", "up",
		"whether the last scrape reached and authenticated against the device",
		"name", "address",
	)
	scrapeDurationDesc = helper.Description(
		"scrape", "duration_seconds",
		"duration of the whole device scrape",
		"name", "address",
	)
	collectorSuccessDesc = helper.Description(
		"scrape", "collector_success",
		"whether a collector succeeded on the last scrape",
		"name", "address", "collector",
	)
)

type collector struct {
	ctx         context.Context
	devices     []*config.Device
	collectors  []Collector
	timeout     time.Duration
	enableTLS   bool
	insecureTLS bool
}

// NewCollector creates a collector instance. It is cheap to construct and
// meant to live for a single scrape request: session and sample state
// never cross cycles.
func NewCollector(cfg *config.Config, opts ...Option) (prometheus.Collector, error) {
	c := &collector{
		ctx:        context.Background(),
		devices:    cfg.Devices,
		timeout:    DefaultTimeout,
		collectors: make([]Collector, 0),
	}

	for _, o := range opts {
		o(c)
	}

	return c, nil
}

var resolvConf = "/etc/resolv.conf"

// DiscoverDevices resolves SRV-record device entries to concrete
// addresses. Called once at startup, before serving scrapes.
func DiscoverDevices(cfg *config.Config) error {
	for i, dev := range cfg.Devices {
		if (config.SrvRecord{}) == dev.Srv {
			continue
		}

		log.WithFields(log.Fields{
			"SRV": dev.Srv.Record,
		}).Info("SRV configuration detected")

		var dnsServer string
		if (config.DnsServer{}) != dev.Srv.Dns {
			dnsServer = net.JoinHostPort(dev.Srv.Dns.Address, strconv.Itoa(dev.Srv.Dns.Port))
			log.WithFields(log.Fields{
				"DnsServer": dnsServer,
			}).Info("Custom DNS config detected")
		} else {
			conf, err := dns.ClientConfigFromFile(resolvConf)
			if err != nil {
				return fmt.Errorf("read %s: %w", resolvConf, err)
			}
			if len(conf.Servers) == 0 {
				return fmt.Errorf("no DNS server in %s for SRV record %s", resolvConf, dev.Srv.Record)
			}
			dnsServer = net.JoinHostPort(conf.Servers[0], "53")
		}
		dnsMsg := new(dns.Msg)
		dnsCli := new(dns.Client)

		dnsMsg.RecursionDesired = true
		dnsMsg.SetQuestion(dns.Fqdn(dev.Srv.Record), dns.TypeSRV)
		r, _, err := dnsCli.Exchange(dnsMsg, dnsServer)
		if err != nil {
			return err
		}

		for _, k := range r.Answer {
			if s, ok := k.(*dns.SRV); ok {
				d := &config.Device{}
				d.Name = strings.TrimRight(s.Target, ".")
				d.Address = strings.TrimRight(s.Target, ".")
				d.Port = strconv.Itoa(int(s.Port))
				d.User = dev.User
				d.Password = dev.Password
				d.Scheme = dev.Scheme
				cfg.Devices[i] = d
			}
		}
	}

	return nil
}

// Describe implements the prometheus.Collector interface.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- collectorSuccessDesc

	for _, co := range c.collectors {
		co.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	wg := sync.WaitGroup{}
	wg.Add(len(c.devices))

	for _, dev := range c.devices {
		go func(d *config.Device) {
			c.collectForDevice(d, ch)
			wg.Done()
		}(dev)
	}

	wg.Wait()
}

func (c *collector) collectForDevice(d *config.Device, ch chan<- prometheus.Metric) {
	begin := time.Now()

	// the console is a single-session resource: hold the device for the
	// whole cycle so overlapping scrapes of one target never interleave
	d.Lock()
	defer d.Unlock()

	up := 1.0
	if err := c.connectAndCollect(d, ch); err != nil {
		log.WithFields(log.Fields{
			"device": d.Name,
			"error":  err,
		}).Error("error authenticating against device")
		up = 0
	}

	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, up, d.Name, d.Address)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(begin).Seconds(), d.Name, d.Address)
}

// connectAndCollect authenticates and runs every enabled collector in
// order. Only authentication failures propagate; parse and transport
// failures are recorded per collector and the cycle moves on, so one
// broken parser never suppresses the remaining metric families.
func (c *collector) connectAndCollect(d *config.Device, ch chan<- prometheus.Metric) error {
	opts := []tomato.Option{tomato.WithTimeout(c.timeout)}
	if c.enableTLS {
		opts = append(opts, tomato.WithTLS(c.insecureTLS))
	}
	cl := tomato.NewClient(d, opts...)

	if err := cl.Login(c.ctx); err != nil {
		return err
	}

	for _, co := range c.collectors {
		if err := c.runCollector(co, d, cl, ch); err != nil {
			// credentials revoked mid-cycle: the device is down for this
			// cycle, do not keep re-authenticating for remaining collectors
			return err
		}

		if c.ctx.Err() != nil {
			// caller disconnected, stop issuing commands
			return nil
		}
	}

	return nil
}

// runCollector records one collector's verdict. Parse and transport
// failures stay scoped to the collector; a rejected or unusable re-login
// is terminal and propagates to fail the whole cycle.
func (c *collector) runCollector(co Collector, d *config.Device, cl *tomato.Client, ch chan<- prometheus.Metric) error {
	ctx := &Context{Ctx: c.ctx, Ch: ch, Device: d, Client: cl}

	success := 1.0
	err := co.Collect(ctx)
	if err != nil {
		log.WithFields(log.Fields{
			"collector": co.Name(),
			"device":    d.Name,
			"error":     err,
		}).Error("collector failed")
		success = 0
	}

	ch <- prometheus.MustNewConstMetric(collectorSuccessDesc, prometheus.GaugeValue, success, d.Name, d.Address, co.Name())

	if errors.Is(err, tomato.ErrAuthRejected) || errors.Is(err, tomato.ErrMalformedAuthResponse) {
		return err
	}

	return nil
}
