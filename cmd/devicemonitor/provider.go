package main

import (
	"context"
	"fmt"
	"runtime"

	"devicemonitor/internal/config"
	"devicemonitor/internal/hardware"
	"devicemonitor/internal/hardware/hwmon"
	"devicemonitor/internal/hardware/lhm"
	"devicemonitor/internal/logger"
)

// resolveProvider maps "auto" to the native provider for goos.
func resolveProvider(name, goos string) string {
	if name != config.ProviderAuto && name != "" {
		return name
	}
	if goos == "windows" {
		return config.ProviderLHM
	}
	return config.ProviderHwmon
}

// openProvider creates the configured hardware provider. The returned stop
// function releases whatever the provider started.
func openProvider(ctx context.Context, cfg config.HardwareConfig) (hardware.Provider, func(), error) {
	log := logger.WithComponent("main")
	name := resolveProvider(cfg.Provider, runtime.GOOS)

	switch name {
	case config.ProviderLHM:
		client := lhm.NewClient(lhm.Config{
			HelperPath:     cfg.HelperPath,
			RequestTimeout: cfg.RequestTimeout,
		})
		if err := client.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("LHM helper failed to start, temperature and fan readings will be unavailable")
		}
		return lhm.NewProvider(client), client.Stop, nil

	case config.ProviderHwmon:
		return hwmon.NewProvider(hwmon.Config{SysfsRoot: cfg.SysfsRoot}), func() {}, nil

	case config.ProviderSnapshot:
		log.Info().Str("path", cfg.SnapshotPath).Msg("Replaying hardware snapshot")
		return hardware.NewSnapshotProvider(cfg.SnapshotPath), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown hardware provider %q", name)
	}
}
