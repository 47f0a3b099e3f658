package collector

import "time"

// MetricData is the common wrapper for all collected metrics.
type MetricData struct {
	Type       string            `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	DeviceUUID string            `json:"device_uuid"`
	Hostname   string            `json:"hostname"`
	Tags       map[string]string `json:"tags,omitempty"`
	Data       interface{}       `json:"data"`
}

// LoadData contains the CPU utilization. -1 means unavailable.
type LoadData struct {
	LoadPercent float64 `json:"load_percent"`
}

// TemperatureData contains the selected CPU temperature. -1 means unavailable.
type TemperatureData struct {
	Celsius int `json:"celsius"`
}

// FanSpeedData contains the fan speed percentage and its status.
type FanSpeedData struct {
	Status  int `json:"status"`
	Percent int `json:"percent"`
}
