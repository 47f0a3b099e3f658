// Package collector adapts the device monitor readings into periodically
// collected metrics.
package collector

import (
	"context"
	"sync"
	"time"

	"devicemonitor/internal/config"
)

// Collector defines the interface for all metric collectors.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect gathers metrics and returns the collected data.
	Collect(ctx context.Context) (*MetricData, error)

	// Configure applies the given configuration to the collector.
	Configure(cfg config.CollectorConfig) error

	// Interval returns the collection interval for this collector.
	Interval() time.Duration

	// Enabled returns whether the collector is enabled.
	Enabled() bool

	// DefaultConfig returns the default CollectorConfig for this collector.
	DefaultConfig() config.CollectorConfig
}

// BaseCollector provides common functionality for all collectors. Interval
// and Enabled may be read by the scheduler while a config reload writes them.
type BaseCollector struct {
	name string

	mu       sync.RWMutex
	interval time.Duration
	enabled  bool
}

// NewBaseCollector creates a new BaseCollector with the given name and
// default interval.
func NewBaseCollector(name string, interval time.Duration) BaseCollector {
	return BaseCollector{
		name:     name,
		interval: interval,
		enabled:  true,
	}
}

// Name returns the collector name.
func (b *BaseCollector) Name() string {
	return b.name
}

// Interval returns the collection interval.
func (b *BaseCollector) Interval() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.interval
}

// Enabled returns whether the collector is enabled.
func (b *BaseCollector) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// Configure applies Enabled and a positive Interval.
func (b *BaseCollector) Configure(cfg config.CollectorConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = cfg.Enabled
	if cfg.Interval > 0 {
		b.interval = cfg.Interval
	}
	return nil
}

// DefaultConfig returns the default CollectorConfig for this collector.
func (b *BaseCollector) DefaultConfig() config.CollectorConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return config.CollectorConfig{
		Enabled:  true,
		Interval: b.interval,
	}
}

func (b *BaseCollector) metric(data interface{}) *MetricData {
	return &MetricData{
		Type:      b.name,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
