package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// --- Default Config Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SenderType != SenderFile {
		t.Errorf("expected SenderType=file, got %q", cfg.SenderType)
	}
	if cfg.Hardware.Provider != ProviderAuto {
		t.Errorf("expected Hardware.Provider=auto, got %q", cfg.Hardware.Provider)
	}
	if cfg.LoadErrorCooldown != 5*time.Minute {
		t.Errorf("expected LoadErrorCooldown=5m, got %v", cfg.LoadErrorCooldown)
	}
	if !strings.HasSuffix(cfg.Plugins.FilterPath, "SupportedPluginsFilter.json") {
		t.Errorf("unexpected plugin filter path %q", cfg.Plugins.FilterPath)
	}
	if cfg.Redis.Address != "localhost:6379" || cfg.Redis.Password != "" {
		t.Errorf("unexpected redis defaults: %+v", cfg.Redis)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

// --- Parse Tests ---

func TestParse_Full(t *testing.T) {
	input := `{
		"DeviceUUID": "2D5C8A8E-7F0B-4A8E-9D7C-0B1E6F3A9C11",
		"Hostname": "rig-07",
		"SenderType": "redis",
		"Redis": {"Address": "10.0.0.5:6380", "DB": 2, "TTL": "90s"},
		"Kafka": {"Brokers": ["k1:9092", "k2:9092"], "RetryBackoff": "250ms", "Timeout": "3s"},
		"SocksProxy": {"Host": "proxy", "Port": 1080},
		"Hardware": {"Provider": "lhm", "HelperPath": "C:\\tools\\LhmHelper.exe", "RequestTimeout": "4s"},
		"Plugins": {"FilterPath": "data/filter.json", "Watch": true},
		"LoadErrorCooldown": "1m"
	}`

	cfg, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Hostname != "rig-07" || cfg.SenderType != SenderRedis {
		t.Errorf("unexpected top-level fields: %+v", cfg)
	}
	if cfg.Redis.Address != "10.0.0.5:6380" || cfg.Redis.DB != 2 || cfg.Redis.TTL != 90*time.Second {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Redis.KeyPrefix != "devicemonitor:" {
		t.Errorf("KeyPrefix default lost: %q", cfg.Redis.KeyPrefix)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.RetryBackoff != 250*time.Millisecond || cfg.Kafka.Timeout != 3*time.Second {
		t.Errorf("unexpected kafka config: %+v", cfg.Kafka)
	}
	if cfg.Kafka.FlushFrequency != 500*time.Millisecond {
		t.Errorf("FlushFrequency default lost: %v", cfg.Kafka.FlushFrequency)
	}
	if cfg.SOCKSProxy.Host != "proxy" || cfg.SOCKSProxy.Port != 1080 {
		t.Errorf("unexpected socks config: %+v", cfg.SOCKSProxy)
	}
	if cfg.Hardware.Provider != ProviderLHM || cfg.Hardware.RequestTimeout != 4*time.Second {
		t.Errorf("unexpected hardware config: %+v", cfg.Hardware)
	}
	if !cfg.Plugins.Watch || cfg.Plugins.FilterPath != "data/filter.json" {
		t.Errorf("unexpected plugins config: %+v", cfg.Plugins)
	}
	if cfg.LoadErrorCooldown != time.Minute {
		t.Errorf("LoadErrorCooldown = %v", cfg.LoadErrorCooldown)
	}
}

func TestParse_EmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if cfg.SenderType != def.SenderType || cfg.File.FilePath != def.File.FilePath {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"bad json":         `{`,
		"bad duration":     `{"LoadErrorCooldown": "soon"}`,
		"bad kafka":        `{"Kafka": {"Timeout": "x"}}`,
		"bad redis ttl":    `{"Redis": {"TTL": "1 day"}}`,
		"bad helper wait":  `{"Hardware": {"RequestTimeout": "-"}}`,
		"unknown sender":   `{"SenderType": "carrier-pigeon"}`,
		"unknown provider": `{"Hardware": {"Provider": "ipmi"}}`,
		"snapshot no path": `{"Hardware": {"Provider": "snapshot"}}`,
		"bad device uuid":  `{"DeviceUUID": "rig-07"}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(input)); err == nil {
				t.Errorf("expected error for %s", input)
			}
		})
	}
}

// --- Monitor / Logging ---

func TestParseMonitor(t *testing.T) {
	mc, err := ParseMonitor([]byte(`{
		"Collectors": {
			"Load": {"Enabled": true, "Interval": "5s"},
			"FanSpeed": {"Enabled": false}
		}
	}`))
	if err != nil {
		t.Fatal(err)
	}

	mc.ApplyDefaults(map[string]CollectorConfig{
		"Load":        {Enabled: true, Interval: 10 * time.Second},
		"Temperature": {Enabled: true, Interval: 30 * time.Second},
		"FanSpeed":    {Enabled: true, Interval: 30 * time.Second},
	})

	if c := mc.Collectors["Load"]; !c.Enabled || c.Interval != 5*time.Second {
		t.Errorf("Load = %+v", c)
	}
	if c := mc.Collectors["FanSpeed"]; c.Enabled {
		t.Errorf("FanSpeed should stay disabled: %+v", c)
	}
	if c := mc.Collectors["Temperature"]; c.Interval != 30*time.Second {
		t.Errorf("Temperature default not applied: %+v", c)
	}
}

func TestParseMonitor_BadInterval(t *testing.T) {
	_, err := ParseMonitor([]byte(`{"Collectors": {"Load": {"Enabled": true, "Interval": "often"}}}`))
	if err == nil || !strings.Contains(err.Error(), "Load") {
		t.Errorf("expected error naming the collector, got %v", err)
	}
}

func TestMonitorMerge_KeepsIntervalWhenZero(t *testing.T) {
	mc := &MonitorConfig{Collectors: map[string]CollectorConfig{
		"Load": {Enabled: true, Interval: 10 * time.Second},
	}}
	mc.Merge(&MonitorConfig{Collectors: map[string]CollectorConfig{
		"Load": {Enabled: false},
	}})
	if c := mc.Collectors["Load"]; c.Enabled || c.Interval != 10*time.Second {
		t.Errorf("Load = %+v", c)
	}
}

func TestParseLogging(t *testing.T) {
	lc, err := ParseLogging([]byte(`{"Level": "debug", "Format": "fixed", "Console": true}`))
	if err != nil {
		t.Fatal(err)
	}
	if lc.Level != "debug" || lc.Format != "fixed" || !lc.Console {
		t.Errorf("unexpected logging config: %+v", lc)
	}
	if lc.FilePath == "" || lc.MaxSizeMB == 0 {
		t.Errorf("defaults not applied: %+v", lc)
	}
}

func TestLoadSplit(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	cfgPath := write("DeviceMonitor.json", `{"SenderType": "kafka"}`)
	monPath := write("Monitor.json", `{"Collectors": {"Temperature": {"Enabled": true, "Interval": "1m"}}}`)
	logPath := write("Logging.json", `{"Level": "warn"}`)

	cfg, mc, lc, err := LoadSplit(cfgPath, monPath, logPath)
	if err != nil {
		t.Fatalf("LoadSplit failed: %v", err)
	}
	if cfg.SenderType != SenderKafka || mc.Collectors["Temperature"].Interval != time.Minute || lc.Level != "warn" {
		t.Errorf("unexpected split config: %+v %+v %+v", cfg, mc, lc)
	}

	if _, _, _, err := LoadSplit(filepath.Join(dir, "missing.json"), monPath, logPath); err == nil {
		t.Error("expected error for a missing config file")
	}
}

// --- Identity ---

func TestGetDeviceUUID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeviceUUID = "2D5C8A8E-7F0B-4A8E-9D7C-0B1E6F3A9C11"
	if got := GetDeviceUUID(cfg); got != "2d5c8a8e-7f0b-4a8e-9d7c-0b1e6f3a9c11" {
		t.Errorf("configured UUID not canonicalized: %q", got)
	}

	a := &Config{Hostname: "rig-07"}
	b := &Config{Hostname: "RIG-07"}
	c := &Config{Hostname: "rig-08"}
	if GetDeviceUUID(a) != GetDeviceUUID(b) {
		t.Error("derived UUID should not depend on hostname case")
	}
	if GetDeviceUUID(a) == GetDeviceUUID(c) {
		t.Error("different hosts must get different UUIDs")
	}
}

func TestGetHostname(t *testing.T) {
	if got := GetHostname(&Config{Hostname: "rig-07"}); got != "rig-07" {
		t.Errorf("GetHostname = %q", got)
	}
	if got := GetHostname(&Config{}); got == "" {
		t.Error("GetHostname should fall back to the system hostname")
	}
}

// --- Watcher ---

func TestFileWatcher_DebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Monitor.json")
	os.WriteFile(path, []byte(`{}`), 0o644)

	var calls atomic.Int32
	w, err := NewFileWatcher(path, func() { calls.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		os.WriteFile(path, []byte(`{"Collectors": {}}`), 0o644)
	}

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(2 * DefaultDebounce)

	if n := calls.Load(); n < 1 || n >= 5 {
		t.Errorf("expected writes to be debounced, got %d callbacks", n)
	}
}

func TestMonitorWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Monitor.json")
	os.WriteFile(path, []byte(`{}`), 0o644)

	got := make(chan *MonitorConfig, 4)
	w, err := NewMonitorWatcher(path, func(mc *MonitorConfig) { got <- mc })
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	os.WriteFile(path, []byte(`{"Collectors": {"Load": {"Enabled": true, "Interval": "2s"}}}`), 0o644)

	select {
	case mc := <-got:
		if mc.Collectors["Load"].Interval != 2*time.Second {
			t.Errorf("unexpected reload: %+v", mc.Collectors)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("monitor config not reloaded")
	}
}

func TestFileWatcher_StopIdempotent(t *testing.T) {
	w, err := NewFileWatcher(filepath.Join(t.TempDir(), "x.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsRunning() {
		t.Error("expected running")
	}
	w.Stop()
	w.Stop()
	if w.IsRunning() {
		t.Error("expected stopped")
	}
}
