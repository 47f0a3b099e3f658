package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"devicemonitor/internal/config"
	"devicemonitor/internal/logger"
	"devicemonitor/internal/plugins"
)

func init() {
	_ = logger.Init(logger.Config{Level: "disabled"})
}

const testPluginUUID = "0e0a7320-94ec-11ea-a64d-17be303ea466"

func pluginsConfig(t *testing.T, watch bool) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Plugins.FilterPath = filepath.Join(t.TempDir(), plugins.FilterFileName)
	cfg.Plugins.Watch = watch
	return cfg
}

func TestSetupPlugins_WatchUpdatesReturnedFilter(t *testing.T) {
	cfg := pluginsConfig(t, true)

	filter, stop := setupPlugins(cfg)
	defer stop()

	if pluginStatus(filter, plugins.BMinerPluginUUID) != "excluded" {
		t.Fatal("default exclusions not applied")
	}

	os.WriteFile(cfg.Plugins.FilterPath, []byte(`["`+testPluginUUID+`"]`), 0o644)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if pluginStatus(filter, testPluginUUID) == "excluded" {
			if pluginStatus(filter, plugins.BMinerPluginUUID) != "supported" {
				t.Errorf("stale exclusions after reload: %v", filter.Excluded())
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("returned filter not reloaded: %v", filter.Excluded())
}

func TestSetupPlugins_UnreadableFallsBackToDefaults(t *testing.T) {
	cfg := pluginsConfig(t, false)
	if err := os.Mkdir(cfg.Plugins.FilterPath, 0o755); err != nil {
		t.Fatal(err)
	}

	filter, stop := setupPlugins(cfg)
	defer stop()

	if filter.Path() != "" {
		t.Errorf("expected the default filter, got one backed by %q", filter.Path())
	}
	if pluginStatus(filter, plugins.BMinerPluginUUID) != "excluded" {
		t.Error("default exclusions not applied")
	}
}

func TestRunCheckPlugin(t *testing.T) {
	cfg := pluginsConfig(t, false)
	os.WriteFile(cfg.Plugins.FilterPath, []byte(`["LegacyMinerPlugin"]`), 0o644)

	if code := runCheckPlugin(cfg, "LegacyMinerPlugin"); code != 1 {
		t.Errorf("excluded plugin exit code = %d, want 1", code)
	}
	if code := runCheckPlugin(cfg, testPluginUUID); code != 0 {
		t.Errorf("supported plugin exit code = %d, want 0", code)
	}
}
