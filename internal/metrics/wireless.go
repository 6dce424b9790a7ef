package metrics

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/helper"
)

func init() {
	Registry.Add("wireless", newWirelessCollector)
}

var wlstatsBlobRe = regexp.MustCompile(`(?s)wlstats\s*=\s*(\[.*?\])\s*;`)

type wirelessCollector struct {
	descriptions map[string]*prometheus.Desc
}

func newWirelessCollector() collector.Collector {
	c := &wirelessCollector{descriptions: make(map[string]*prometheus.Desc)}

	for prop, help := range map[string]string{
		"radio":         "whether the radio of the wireless unit is enabled",
		"clients":       "number of stations associated with the wireless unit",
		"channel":       "channel the wireless unit operates on",
		"frequency_mhz": "center frequency of the wireless unit",
		"rate_mbps":     "current transmit rate of the wireless unit",
		"width_mhz":     "channel width of the wireless unit",
		"rssi_dbm":      "received signal strength on the wireless unit",
		"noise_dbm":     "noise floor on the wireless unit",
	} {
		c.descriptions[prop] = helper.Description("wireless", prop, help, "unit")
	}

	return c
}

func (c *wirelessCollector) Name() string { return "wireless" }

func (c *wirelessCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descriptions {
		ch <- d
	}
}

func (c *wirelessCollector) Collect(ctx *collector.Context) error {
	body, err := ctx.Client.FetchPage(ctx.Ctx, statusDataPage, nil)
	if err != nil {
		return err
	}

	stats, err := parseWlStats(body)
	if err != nil {
		return err
	}

	for i, s := range stats {
		unit := fmt.Sprintf("wl%d", i)
		c.emit(ctx, "radio", s.Radio, unit)
		c.emit(ctx, "clients", s.Client, unit)
		c.emit(ctx, "channel", s.Channel, unit)
		c.emit(ctx, "frequency_mhz", s.Mhz, unit)
		// the driver reports rate in half-Mbps steps
		c.emit(ctx, "rate_mbps", s.Rate/2, unit)
		c.emit(ctx, "width_mhz", s.Nbw, unit)
		c.emit(ctx, "rssi_dbm", s.Rssi, unit)
		c.emit(ctx, "noise_dbm", s.Noise, unit)
	}

	return nil
}

func (c *wirelessCollector) emit(ctx *collector.Context, prop string, v float64, unit string) {
	ctx.Ch <- prometheus.MustNewConstMetric(c.descriptions[prop], prometheus.GaugeValue, v, unit)
}

type wlStat struct {
	Radio   float64 `json:"radio"`
	Client  float64 `json:"client"`
	Channel float64 `json:"channel"`
	Mhz     float64 `json:"mhz"`
	Rate    float64 `json:"rate"`
	Ctrlsb  string  `json:"ctrlsb"`
	Nbw     float64 `json:"nbw"`
	Rssi    float64 `json:"rssi"`
	Noise   float64 `json:"noise"`
	Intf    float64 `json:"intf"`
}

// parseWlStats extracts the wireless unit array from the status page. A
// wired-only build without the blob is a valid zero, not an error.
func parseWlStats(body string) ([]wlStat, error) {
	m := wlstatsBlobRe.FindStringSubmatch(body)
	if m == nil {
		return nil, nil
	}

	var stats []wlStat
	if err := json.Unmarshal([]byte(jsObjectToJSON(m[1])), &stats); err != nil {
		return nil, newParseError(statusDataPage, "wlstats blob not decodable: "+err.Error(), m[1])
	}

	return stats, nil
}
