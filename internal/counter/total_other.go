//go:build !windows

package counter

import "devicemonitor/internal/monitor"

// NewTotalCPU returns the platform's "all cores" utilization source.
func NewTotalCPU() monitor.CounterSource {
	return NewPercentSource()
}
