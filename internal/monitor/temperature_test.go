package monitor

import (
	"testing"

	"devicemonitor/internal/hardware"
)

func temp(name string, v float64) hardware.Sensor {
	return hardware.Sensor{Name: name, Type: hardware.SensorTemperature, Value: v}
}

func TestCPUTemperature(t *testing.T) {
	tests := []struct {
		name    string
		sensors []hardware.Sensor
		want    int
	}{
		{
			name:    "package wins regardless of position",
			sensors: []hardware.Sensor{temp("CPU Core #1", 40), temp("Core (Tctl/Tdie)", 50), temp("CPU Package", 61.9)},
			want:    61,
		},
		{
			name:    "package wins when first",
			sensors: []hardware.Sensor{temp("CPU Package", 58), temp("CPU Core #1", 40)},
			want:    58,
		},
		{
			name:    "tdie matches first rule",
			sensors: []hardware.Sensor{temp("Core (Tctl/Tdie)", 70), temp("CCD1 (Tdie)", 66.4)},
			want:    66,
		},
		{
			name:    "tctl/tdie fallback",
			sensors: []hardware.Sensor{temp("CCD1", 60), temp("Core (Tctl/Tdie)", 71.8)},
			want:    71,
		},
		{
			name:    "first sensor fallback",
			sensors: []hardware.Sensor{temp("CPU Core #2", 45.7), temp("CPU Core #1", 44)},
			want:    45,
		},
		{
			name:    "empty is unavailable",
			sensors: nil,
			want:    TemperatureUnavailable,
		},
		{
			name:    "negative truncates toward zero",
			sensors: []hardware.Sensor{temp("CPU Package", -0.5)},
			want:    0,
		},
		{
			name:    "package name must match exactly",
			sensors: []hardware.Sensor{temp("CPU Package Extra", 30), temp("Core (Tctl/Tdie)", 50)},
			want:    50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CPUTemperature(tt.sensors); got != tt.want {
				t.Errorf("CPUTemperature() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTemperatureRules_Individually(t *testing.T) {
	rules := map[string]TemperatureRule{}
	for _, r := range DefaultTemperatureRules {
		rules[r.Name] = r
	}

	cases := []struct {
		rule   string
		sensor string
		want   bool
	}{
		{"package", "CPU Package", true},
		{"package", "cpu package", false},
		{"package", "CCD2 (Tdie)", true},
		{"package", "Core (Tctl/Tdie)", false},
		{"tctl-tdie", "Core (Tctl/Tdie)", true},
		{"tctl-tdie", "CCD1 (Tdie)", false},
		{"first", "anything", true},
	}
	for _, c := range cases {
		r, ok := rules[c.rule]
		if !ok {
			t.Fatalf("rule %q not defined", c.rule)
		}
		if got := r.Match(temp(c.sensor, 1)); got != c.want {
			t.Errorf("%s.Match(%q) = %v, want %v", c.rule, c.sensor, got, c.want)
		}
	}
}

func TestSelectTemperature_ReportsRule(t *testing.T) {
	s, rule, ok := SelectTemperature([]hardware.Sensor{temp("CPU Core #1", 40), temp("Core (Tctl/Tdie)", 50)}, DefaultTemperatureRules)
	if !ok {
		t.Fatal("expected a selection")
	}
	if rule != "tctl-tdie" || s.Value != 50 {
		t.Errorf("got rule=%q value=%v", rule, s.Value)
	}
}
