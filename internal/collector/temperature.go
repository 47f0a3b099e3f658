package collector

import (
	"context"
	"time"

	"devicemonitor/internal/logger"
	"devicemonitor/internal/monitor"
)

// TemperatureCollector reports the CPU temperature.
type TemperatureCollector struct {
	BaseCollector
	source monitor.Thermometer
}

// NewTemperatureCollector creates a temperature collector over source.
func NewTemperatureCollector(source monitor.Thermometer) *TemperatureCollector {
	return &TemperatureCollector{
		BaseCollector: NewBaseCollector("Temperature", 30*time.Second),
		source:        source,
	}
}

// Collect gathers the CPU temperature. An unavailable reading is still
// reported so consumers see the sentinel.
func (c *TemperatureCollector) Collect(ctx context.Context) (*MetricData, error) {
	celsius := c.source.Temperature(ctx)
	if celsius == monitor.TemperatureUnavailable {
		log := logger.WithComponent("collector")
		log.Debug().Str("collector", c.Name()).Msg("CPU temperature unavailable")
	}
	return c.metric(TemperatureData{Celsius: celsius}), nil
}
