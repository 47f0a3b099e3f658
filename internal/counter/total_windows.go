//go:build windows

package counter

import (
	"errors"
	"fmt"

	"github.com/yusufpapurcu/wmi"

	"devicemonitor/internal/logger"
	"devicemonitor/internal/monitor"
)

// Win32_PerfFormattedData_PerfOS_Processor is the formatted "Processor"
// performance counter class.
type Win32_PerfFormattedData_PerfOS_Processor struct {
	Name                 string
	PercentProcessorTime uint64
}

const totalProcessorQuery = "SELECT Name, PercentProcessorTime FROM Win32_PerfFormattedData_PerfOS_Processor WHERE Name = '_Total'"

// WMISource reads "% Processor Time" of the "_Total" processor instance.
type WMISource struct{}

// Sample queries the counter once.
func (WMISource) Sample() (float64, error) {
	var rows []Win32_PerfFormattedData_PerfOS_Processor
	if err := wmi.Query(totalProcessorQuery, &rows); err != nil {
		return 0, fmt.Errorf("failed to query processor counter: %w", err)
	}
	if len(rows) == 0 {
		return 0, errors.New("processor counter instance _Total not found")
	}
	return float64(rows[0].PercentProcessorTime), nil
}

// NewTotalCPU returns the WMI counter when it answers, otherwise the
// CPU-times source.
func NewTotalCPU() monitor.CounterSource {
	src := WMISource{}
	if _, err := src.Sample(); err != nil {
		log := logger.WithComponent("counter")
		log.Warn().Err(err).Msg("Processor counter unavailable, using CPU times")
		return NewPercentSource()
	}
	return src
}
