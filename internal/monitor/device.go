// Package monitor turns a hardware tree and a utilization counter into the
// three device readings the agent reports: load, CPU temperature and fan
// speed percentage.
package monitor

import (
	"context"
	"fmt"
	"time"

	"devicemonitor/internal/hardware"
	"devicemonitor/internal/logger"
)

// Loader reports utilization.
type Loader interface {
	Load(ctx context.Context) float64
}

// Thermometer reports temperature in whole degrees Celsius.
type Thermometer interface {
	Temperature(ctx context.Context) int
}

// FanSpeedReader reports a fan speed percentage with a status.
type FanSpeedReader interface {
	FanSpeedPercentage(ctx context.Context) (status, percentage int)
}

const hardwareErrorCooldown = 5 * time.Minute

// CPUMonitor reports load, temperature and fan speed for the host CPU.
type CPUMonitor struct {
	uuid     string
	provider hardware.Provider
	load     *LoadSampler
	log      DelayedLogger
}

// NewCPUMonitor creates a monitor for the device identified by uuid.
func NewCPUMonitor(uuid string, provider hardware.Provider, load *LoadSampler) *CPUMonitor {
	return &CPUMonitor{
		uuid:     uuid,
		provider: provider,
		load:     load,
		log:      delayedLoggerFunc(logger.ErrorDelayed),
	}
}

// UUID returns the device identifier.
func (m *CPUMonitor) UUID() string {
	return m.uuid
}

// Load returns the latest CPU utilization or LoadUnavailable.
func (m *CPUMonitor) Load(ctx context.Context) float64 {
	if m.load == nil {
		return LoadUnavailable
	}
	return m.load.Load()
}

// Temperature returns the CPU temperature or TemperatureUnavailable.
func (m *CPUMonitor) Temperature(ctx context.Context) int {
	celsius, err := m.readTemperature(ctx)
	if err != nil {
		m.log.ErrorDelayed("CPUTEMP", err.Error(), hardwareErrorCooldown)
		return TemperatureUnavailable
	}
	return celsius
}

// FanSpeedPercentage returns the motherboard fan controller percentage.
// With several motherboard sub-hardware nodes the last one that yields a
// fan/control pair wins. A missing motherboard reports StatusUnavailable.
func (m *CPUMonitor) FanSpeedPercentage(ctx context.Context) (status, percentage int) {
	percentage, err := m.readFanSpeed(ctx)
	if err != nil {
		m.log.ErrorDelayed("CPUFAN", err.Error(), hardwareErrorCooldown)
		return StatusUnavailable, 0
	}
	return StatusOK, percentage
}

func (m *CPUMonitor) readTemperature(ctx context.Context) (int, error) {
	var celsius int
	err := m.withComputer(ctx, hardware.SubsystemCPU, func(hw []hardware.Hardware) error {
		cpu := hardware.FirstOfType(hw, hardware.TypeCPU)
		if cpu == nil {
			return fmt.Errorf("cpu: %w", hardware.ErrSubsystemUnavailable)
		}
		celsius = CPUTemperature(hardware.SensorsOfType(cpu, hardware.SensorTemperature))
		return nil
	})
	if err != nil {
		return TemperatureUnavailable, err
	}
	return celsius, nil
}

func (m *CPUMonitor) readFanSpeed(ctx context.Context) (int, error) {
	log := logger.WithComponent("monitor")

	percentage := 0
	err := m.withComputer(ctx, hardware.SubsystemMotherboard, func(hw []hardware.Hardware) error {
		board := hardware.FirstOfType(hw, hardware.TypeMotherboard)
		if board == nil {
			return fmt.Errorf("motherboard: %w", hardware.ErrSubsystemUnavailable)
		}
		found := false
		for _, sub := range board.SubHardware() {
			p, ok := ResolveFanPercentage(sub.Sensors())
			if !ok {
				continue
			}
			if found {
				log.Debug().
					Str("hardware", sub.Identifier()).
					Int("previous", percentage).
					Int("percent", p).
					Msg("Fan percentage overwritten by later sub-hardware")
			}
			percentage, found = p, true
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return percentage, nil
}

// withComputer opens a computer with one subsystem enabled, runs a full
// update traversal and hands the refreshed tree to read. The computer is
// closed on every path.
func (m *CPUMonitor) withComputer(ctx context.Context, s hardware.Subsystem, read func([]hardware.Hardware) error) (err error) {
	c, err := m.provider.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open hardware: %w", err)
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close hardware: %w", cerr)
		}
	}()

	c.Enable(s)
	hw, err := hardware.Traverse(ctx, c, nil)
	if err != nil {
		return err
	}
	return read(hw)
}
