package monitor

import (
	"strings"

	"devicemonitor/internal/hardware"
)

// TemperatureUnavailable is reported when no CPU temperature can be read.
const TemperatureUnavailable = -1

// TemperatureRule selects a representative sensor from the CPU's
// temperature sensors.
type TemperatureRule struct {
	Name  string
	Match func(s hardware.Sensor) bool
}

// DefaultTemperatureRules is the selection order, first match wins:
// the Intel package sensor or an AMD Tdie sensor, then the combined AMD
// Tctl/Tdie sensor. If neither matches, the first sensor is used.
var DefaultTemperatureRules = []TemperatureRule{
	{
		Name: "package",
		Match: func(s hardware.Sensor) bool {
			return s.Name == "CPU Package" || strings.Contains(s.Name, "(Tdie)")
		},
	},
	{
		Name: "tctl-tdie",
		Match: func(s hardware.Sensor) bool {
			return strings.Contains(s.Name, "(Tctl/Tdie)")
		},
	},
	{
		Name:  "first",
		Match: func(hardware.Sensor) bool { return true },
	},
}

// SelectTemperature applies rules in order and returns the first matching
// sensor and the name of the rule that chose it.
func SelectTemperature(sensors []hardware.Sensor, rules []TemperatureRule) (hardware.Sensor, string, bool) {
	for _, r := range rules {
		for _, s := range sensors {
			if r.Match(s) {
				return s, r.Name, true
			}
		}
	}
	return hardware.Sensor{}, "", false
}

// CPUTemperature returns the representative temperature in whole degrees,
// truncated toward zero, or TemperatureUnavailable if sensors is empty.
func CPUTemperature(sensors []hardware.Sensor) int {
	s, _, ok := SelectTemperature(sensors, DefaultTemperatureRules)
	if !ok {
		return TemperatureUnavailable
	}
	return int(s.Value)
}
