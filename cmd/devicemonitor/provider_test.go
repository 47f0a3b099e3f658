package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"devicemonitor/internal/config"
	"devicemonitor/internal/hardware"
	"devicemonitor/internal/hardware/hwmon"
	"devicemonitor/internal/monitor"
)

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		name, goos, want string
	}{
		{"auto", "windows", config.ProviderLHM},
		{"auto", "linux", config.ProviderHwmon},
		{"", "linux", config.ProviderHwmon},
		{"snapshot", "windows", config.ProviderSnapshot},
		{"hwmon", "windows", config.ProviderHwmon},
	}
	for _, tt := range tests {
		if got := resolveProvider(tt.name, tt.goos); got != tt.want {
			t.Errorf("resolveProvider(%q, %q) = %q, want %q", tt.name, tt.goos, got, tt.want)
		}
	}
}

func TestOpenProvider_Snapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	snap := &hardware.Snapshot{Hardware: []*hardware.Node{{
		Type:       hardware.TypeCPU,
		Identifier: "/amdcpu/0",
		Name:       "Ryzen",
		Sensors: []hardware.Sensor{
			{Identifier: "/amdcpu/0/temperature/2", Name: "Core (Tctl/Tdie)", Type: hardware.SensorTemperature, Value: 63.9},
		},
	}}}
	if err := hardware.WriteSnapshot(path, snap); err != nil {
		t.Fatal(err)
	}

	p, stop, err := openProvider(context.Background(), config.HardwareConfig{Provider: config.ProviderSnapshot, SnapshotPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	if got := monitor.NewCPUMonitor("id", p, nil).Temperature(context.Background()); got != 63 {
		t.Errorf("Temperature = %d, want 63", got)
	}
}

func TestOpenProvider_Hwmon(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "hwmon0"), 0o755)

	p, stop, err := openProvider(context.Background(), config.HardwareConfig{Provider: config.ProviderHwmon, SysfsRoot: root})
	if err != nil {
		t.Fatal(err)
	}
	defer stop()
	if _, ok := p.(*hwmon.Provider); !ok {
		t.Errorf("expected *hwmon.Provider, got %T", p)
	}
}

func TestOpenProvider_Unknown(t *testing.T) {
	if _, _, err := openProvider(context.Background(), config.HardwareConfig{Provider: "ipmi"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
