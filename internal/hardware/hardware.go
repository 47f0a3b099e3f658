// Package hardware defines the hardware tree consumed by the device monitor:
// computers, hardware nodes and their sensors, plus the providers that open them.
package hardware

import (
	"context"
	"encoding/json"
	"fmt"
)

// SensorType classifies a sensor. The order follows LibreHardwareMonitor's
// enum and is significant: sorting by type puts Fan before Control.
type SensorType int

const (
	SensorVoltage SensorType = iota
	SensorCurrent
	SensorPower
	SensorClock
	SensorTemperature
	SensorLoad
	SensorFrequency
	SensorFan
	SensorFlow
	SensorControl
	SensorLevel
	SensorFactor
	SensorData
	SensorSmallData
	SensorThroughput
	SensorTimeSpan
	SensorEnergy
	SensorNoise
)

var sensorTypeNames = []string{
	"Voltage", "Current", "Power", "Clock", "Temperature", "Load", "Frequency",
	"Fan", "Flow", "Control", "Level", "Factor", "Data", "SmallData",
	"Throughput", "TimeSpan", "Energy", "Noise",
}

func (t SensorType) String() string {
	if t < 0 || int(t) >= len(sensorTypeNames) {
		return fmt.Sprintf("SensorType(%d)", int(t))
	}
	return sensorTypeNames[t]
}

// ParseSensorType converts a LibreHardwareMonitor sensor type name.
func ParseSensorType(s string) (SensorType, error) {
	for i, name := range sensorTypeNames {
		if name == s {
			return SensorType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sensor type %q", s)
}

// MarshalJSON encodes the type by name.
func (t SensorType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts either the type name or its numeric value.
func (t *SensorType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseSensorType(name)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid sensor type %s", string(data))
	}
	if n < 0 || n >= len(sensorTypeNames) {
		return fmt.Errorf("sensor type %d out of range", n)
	}
	*t = SensorType(n)
	return nil
}

// HardwareType classifies a hardware node.
type HardwareType string

const (
	TypeMotherboard        HardwareType = "Motherboard"
	TypeSuperIO            HardwareType = "SuperIO"
	TypeCPU                HardwareType = "Cpu"
	TypeMemory             HardwareType = "Memory"
	TypeGpuNvidia          HardwareType = "GpuNvidia"
	TypeGpuAmd             HardwareType = "GpuAmd"
	TypeGpuIntel           HardwareType = "GpuIntel"
	TypeStorage            HardwareType = "Storage"
	TypeNetwork            HardwareType = "Network"
	TypeCooler             HardwareType = "Cooler"
	TypeEmbeddedController HardwareType = "EmbeddedController"
	TypePsu                HardwareType = "Psu"
	TypeBattery            HardwareType = "Battery"
)

// Subsystem is a group of hardware a computer can be asked to enumerate.
type Subsystem int

const (
	SubsystemCPU Subsystem = iota
	SubsystemMotherboard
	SubsystemGPU
	SubsystemMemory
	SubsystemStorage
)

func (s Subsystem) String() string {
	switch s {
	case SubsystemCPU:
		return "Cpu"
	case SubsystemMotherboard:
		return "Motherboard"
	case SubsystemGPU:
		return "Gpu"
	case SubsystemMemory:
		return "Memory"
	case SubsystemStorage:
		return "Storage"
	default:
		return fmt.Sprintf("Subsystem(%d)", int(s))
	}
}

// Covers reports whether top-level hardware of type t belongs to the subsystem.
func (s Subsystem) Covers(t HardwareType) bool {
	switch s {
	case SubsystemCPU:
		return t == TypeCPU
	case SubsystemMotherboard:
		return t == TypeMotherboard
	case SubsystemGPU:
		return t == TypeGpuNvidia || t == TypeGpuAmd || t == TypeGpuIntel
	case SubsystemMemory:
		return t == TypeMemory
	case SubsystemStorage:
		return t == TypeStorage
	}
	return false
}

// Sensor is a single reading taken during an update cycle.
type Sensor struct {
	Identifier string     `json:"Identifier"`
	Name       string     `json:"Name"`
	Type       SensorType `json:"SensorType"`
	Value      float64    `json:"Value"`
	Hardware   string     `json:"Hardware,omitempty"` // owner identifier
}

// Hardware is a node of the hardware tree.
type Hardware interface {
	Type() HardwareType
	Identifier() string
	Name() string

	// Update refreshes the node's own sensors. Sub-hardware is not touched.
	Update(ctx context.Context) error

	Sensors() []Sensor
	SubHardware() []Hardware
}

// Computer is an open handle onto a hardware tree. Enable subsystems before
// listing hardware; Close must be called once the caller is done.
type Computer interface {
	Enable(s Subsystem)
	Hardware(ctx context.Context) ([]Hardware, error)
	Close() error
}

// Provider opens computers.
type Provider interface {
	Open(ctx context.Context) (Computer, error)
}

// FirstOfType returns the first top-level hardware of type t, or nil.
func FirstOfType(hw []Hardware, t HardwareType) Hardware {
	for _, h := range hw {
		if h.Type() == t {
			return h
		}
	}
	return nil
}

// SensorsOfType returns the sensors of h with type t, in order.
func SensorsOfType(h Hardware, t SensorType) []Sensor {
	var out []Sensor
	for _, s := range h.Sensors() {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}
