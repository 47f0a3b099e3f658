package collector

import (
	"fmt"
	"sort"
	"sync"

	"devicemonitor/internal/config"
	"devicemonitor/internal/monitor"
)

// Registry manages collector registration and lifecycle.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
}

// NewRegistry creates a new collector registry.
func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]Collector),
	}
}

// Register adds a collector to the registry.
func (r *Registry) Register(c Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.collectors[name]; exists {
		return fmt.Errorf("collector %s already registered", name)
	}

	r.collectors[name] = c
	return nil
}

// Get retrieves a collector by name.
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collectors[name]
	return c, ok
}

// All returns all registered collectors sorted by name.
func (r *Registry) All() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Collector, 0, len(r.collectors))
	for _, c := range r.collectors {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Configure applies configuration to all registered collectors. Entries
// naming unknown collectors are ignored.
func (r *Registry) Configure(configs map[string]config.CollectorConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, cfg := range configs {
		if c, ok := r.collectors[name]; ok {
			if err := c.Configure(cfg); err != nil {
				return fmt.Errorf("failed to configure collector %s: %w", name, err)
			}
		}
	}
	return nil
}

// EnabledCollectors returns only the enabled collectors.
func (r *Registry) EnabledCollectors() []Collector {
	var result []Collector
	for _, c := range r.All() {
		if c.Enabled() {
			result = append(result, c)
		}
	}
	return result
}

// DefaultConfigs returns each registered collector's default configuration,
// for MonitorConfig.ApplyDefaults.
func (r *Registry) DefaultConfigs() map[string]config.CollectorConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defaults := make(map[string]config.CollectorConfig, len(r.collectors))
	for name, c := range r.collectors {
		defaults[name] = c.DefaultConfig()
	}
	return defaults
}

// DeviceRegistry creates a registry with a collector for every reading
// device supports. device is probed for monitor.Loader, monitor.Thermometer
// and monitor.FanSpeedReader.
func DeviceRegistry(device interface{}) *Registry {
	r := NewRegistry()

	if l, ok := device.(monitor.Loader); ok {
		_ = r.Register(NewLoadCollector(l))
	}
	if t, ok := device.(monitor.Thermometer); ok {
		_ = r.Register(NewTemperatureCollector(t))
	}
	if f, ok := device.(monitor.FanSpeedReader); ok {
		_ = r.Register(NewFanSpeedCollector(f))
	}

	return r
}
