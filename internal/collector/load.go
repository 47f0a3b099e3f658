package collector

import (
	"context"
	"time"

	"devicemonitor/internal/monitor"
)

// LoadCollector reports CPU utilization.
type LoadCollector struct {
	BaseCollector
	source monitor.Loader
}

// NewLoadCollector creates a load collector over source.
func NewLoadCollector(source monitor.Loader) *LoadCollector {
	return &LoadCollector{
		BaseCollector: NewBaseCollector("Load", 10*time.Second),
		source:        source,
	}
}

// Collect gathers the current utilization.
func (c *LoadCollector) Collect(ctx context.Context) (*MetricData, error) {
	return c.metric(LoadData{LoadPercent: c.source.Load(ctx)}), nil
}
