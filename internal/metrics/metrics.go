// Package metrics holds one collector per router data source. Each
// collector pairs the shell command (or console page) it scrapes with a
// pure parse function, and emits node-exporter-compatible samples.
package metrics

import (
	"fmt"

	"tomato-exporter/internal/collector"
)

// Registry maps feature names to collector constructors. Collectors
// register themselves in init().
var Registry = &registry{
	features: make(map[string]initialize),
}

type initialize func() collector.Collector

type registry struct {
	features map[string]initialize
}

func (r *registry) Add(name string, init initialize) {
	if _, exists := r.features[name]; exists {
		panic(fmt.Sprintf("already registered of %s", name))
	}

	r.features[name] = init
}

func (r *registry) Load(feats ...string) ([]collector.Collector, error) {
	var cs []collector.Collector

	for _, feat := range feats {
		init, exists := r.features[feat]
		if !exists {
			return nil, fmt.Errorf("no collector for %s", feat)
		}
		cs = append(cs, init())
	}

	return cs, nil
}

// DefaultFeatures is the collector set used when neither the config file
// nor the -features flag selects one. The sysinfo and bandwidth page
// scrapers stay off: they duplicate series from the load/memory/network
// shell collectors and exist for firmwares with the shell disabled.
func DefaultFeatures() []string {
	return []string{"cpu", "filesystem", "load", "memory", "network", "time", "uname", "wireless"}
}
