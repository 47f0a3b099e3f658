package collector

import (
	"context"
	"time"

	"devicemonitor/internal/logger"
	"devicemonitor/internal/monitor"
)

// FanSpeedCollector reports the CPU fan speed percentage.
type FanSpeedCollector struct {
	BaseCollector
	source monitor.FanSpeedReader
}

// NewFanSpeedCollector creates a fan speed collector over source.
func NewFanSpeedCollector(source monitor.FanSpeedReader) *FanSpeedCollector {
	return &FanSpeedCollector{
		BaseCollector: NewBaseCollector("FanSpeed", 30*time.Second),
		source:        source,
	}
}

// Collect gathers the fan speed percentage.
func (c *FanSpeedCollector) Collect(ctx context.Context) (*MetricData, error) {
	status, percent := c.source.FanSpeedPercentage(ctx)
	if status != monitor.StatusOK {
		log := logger.WithComponent("collector")
		log.Debug().
			Str("collector", c.Name()).
			Int("status", status).
			Msg("Fan speed unavailable")
	}
	return c.metric(FanSpeedData{Status: status, Percent: percent}), nil
}
