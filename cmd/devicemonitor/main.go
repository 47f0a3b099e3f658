// Package main is the entry point for the DeviceMonitor agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"devicemonitor/internal/collector"
	"devicemonitor/internal/config"
	"devicemonitor/internal/counter"
	"devicemonitor/internal/hardware"
	"devicemonitor/internal/logger"
	"devicemonitor/internal/monitor"
	"devicemonitor/internal/plugins"
	"devicemonitor/internal/scheduler"
	"devicemonitor/internal/sender"
	"devicemonitor/internal/service"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const startupErrorLogDir = "log/DeviceMonitor"

func main() {
	var (
		configPath   = flag.String("config", "conf/DeviceMonitor/DeviceMonitor.json", "Path to main configuration file")
		monitorPath  = flag.String("monitor", "conf/DeviceMonitor/Monitor.json", "Path to monitor configuration file")
		loggingPath  = flag.String("logging", "conf/DeviceMonitor/Logging.json", "Path to logging configuration file")
		checkPlugin  = flag.String("check-plugin", "", "Print whether the plugin UUID is supported and exit")
		dumpHardware = flag.String("dump-hardware", "", "Write a snapshot of the CPU and motherboard tree to this file and exit")
		showVersion  = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("DeviceMonitor %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Under the service manager the working directory is System32; an
	// absolute config path (<base>/conf/DeviceMonitor/DeviceMonitor.json)
	// names the install base three levels up.
	if filepath.IsAbs(*configPath) {
		basePath := filepath.Dir(filepath.Dir(filepath.Dir(*configPath)))
		if err := os.Chdir(basePath); err != nil {
			fail(fmt.Errorf("failed to chdir to %s: %w", basePath, err))
		}
	}

	if service.NewService(nil).IsService() {
		logger.SetServiceMode(true)
	}

	cfg, mc, lc, err := config.LoadSplit(*configPath, *monitorPath, *loggingPath)
	if err != nil {
		fail(err)
	}

	if err := logger.Init(*lc); err != nil {
		fail(fmt.Errorf("failed to initialize logger: %w", err))
	}

	log := logger.WithComponent("main")

	switch {
	case *checkPlugin != "":
		os.Exit(runCheckPlugin(cfg, *checkPlugin))
	case *dumpHardware != "":
		os.Exit(runDumpHardware(cfg, *dumpHardware))
	}

	log.Info().
		Str("version", version).
		Str("config", *configPath).
		Str("monitor", *monitorPath).
		Str("logging", *loggingPath).
		Msg("Starting DeviceMonitor")

	svc := service.NewService(func(ctx context.Context) error {
		return run(ctx, cfg, mc, lc, *monitorPath, *loggingPath)
	})

	if err := svc.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Service exited with error")
	}

	log.Info().Msg("DeviceMonitor stopped")
}

// fail reports a startup error everywhere it can be seen and exits.
func fail(err error) {
	service.ReportStartupError(err)
	service.WriteStartupErrorFile(startupErrorLogDir, err)
	fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
	os.Exit(1)
}

func runCheckPlugin(cfg *config.Config, pluginUUID string) int {
	filter, err := plugins.Load(cfg.Plugins.FilterPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load plugin filter: %v\n", err)
		return 2
	}
	status := pluginStatus(filter, pluginUUID)
	fmt.Printf("%s %s (%s)\n", pluginUUID, status, filter.Path())
	if status == "excluded" {
		return 1
	}
	return 0
}

func runDumpHardware(cfg *config.Config, path string) int {
	ctx := context.Background()
	provider, stop, err := openProvider(ctx, cfg.Hardware)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open hardware provider: %v\n", err)
		return 1
	}
	defer stop()

	snap, err := hardware.Capture(ctx, provider, hardware.SubsystemCPU, hardware.SubsystemMotherboard)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read hardware: %v\n", err)
		return 1
	}
	if err := hardware.WriteSnapshot(path, snap); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Printf("Wrote %d hardware nodes to %s\n", len(snap.Hardware), path)
	return 0
}

// setupPlugins loads the plugin filter. A filter that cannot be loaded falls
// back to the default exclusions.
func setupPlugins(cfg *config.Config) (*plugins.Filter, func()) {
	log := logger.WithComponent("main")

	filter, err := plugins.Load(cfg.Plugins.FilterPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load plugin filter, using default exclusions")
		return plugins.Default(), func() {}
	}
	log.Info().
		Str("path", filter.Path()).
		Strs("excluded", filter.Excluded()).
		Msg("Plugin filter loaded")

	if !cfg.Plugins.Watch {
		return filter, func() {}
	}
	w, err := filter.Watch(func(f *plugins.Filter) {
		log.Info().
			Str("path", f.Path()).
			Strs("excluded", f.Excluded()).
			Msg("Plugin filter reloaded")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create plugin filter watcher")
		return filter, func() {}
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start plugin filter watcher")
		return filter, func() {}
	}
	return filter, func() { w.Stop() }
}

func pluginStatus(filter *plugins.Filter, pluginUUID string) string {
	if filter.IsSupported(pluginUUID) {
		return "supported"
	}
	return "excluded"
}

// setupCollectors creates the collector registry for m and configures it
// from MonitorConfig.
func setupCollectors(m *monitor.CPUMonitor, mc *config.MonitorConfig) (*collector.Registry, error) {
	registry := collector.DeviceRegistry(m)
	mc.ApplyDefaults(registry.DefaultConfigs())
	if err := registry.Configure(mc.Collectors); err != nil {
		return nil, fmt.Errorf("failed to configure collectors: %w", err)
	}
	return registry, nil
}

// setupSender creates the sender. Logging.json Console is the master switch
// for console output.
func setupSender(cfg *config.Config, lc *logger.Config) (sender.Sender, error) {
	cfg.File.Console = lc.Console

	snd, err := sender.NewSender(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}
	return snd, nil
}

// setupWatchers creates hot-reload watchers for Monitor.json and Logging.json.
// Returns a cleanup function that stops all started watchers.
func setupWatchers(registry *collector.Registry, sched *scheduler.Scheduler, snd sender.Sender,
	monitorPath, loggingPath string) func() {

	log := logger.WithComponent("main")
	var watcherMu sync.Mutex
	var cleanups []func()

	start := func(name string, w *config.FileWatcher, err error) {
		if err != nil {
			log.Warn().Err(err).Str("watcher", name).Msg("Failed to create watcher, hot reload disabled")
			return
		}
		if err := w.Start(); err != nil {
			log.Warn().Err(err).Str("watcher", name).Msg("Failed to start watcher")
			return
		}
		cleanups = append(cleanups, func() {
			log.Info().Str("watcher", name).Msg("Stopping watcher")
			if err := w.Stop(); err != nil {
				log.Error().Err(err).Str("watcher", name).Msg("Error stopping watcher")
			}
		})
	}

	monitorWatcher, err := config.NewMonitorWatcher(monitorPath, func(newMC *config.MonitorConfig) {
		watcherMu.Lock()
		defer watcherMu.Unlock()

		newMC.ApplyDefaults(registry.DefaultConfigs())
		if err := registry.Configure(newMC.Collectors); err != nil {
			log.Error().Err(err).Msg("Failed to update collector configurations")
			return
		}
		sched.Reconfigure()
		log.Info().Msg("Monitor configuration updated")
	})
	start("monitor", monitorWatcher, err)

	loggingWatcher, err := config.NewLoggingWatcher(loggingPath, func(newLC *logger.Config) {
		watcherMu.Lock()
		defer watcherMu.Unlock()

		if err := logger.Init(*newLC); err != nil {
			log.Error().Err(err).Msg("Failed to update logging configuration")
			return
		}
		if fs, ok := snd.(*sender.FileSender); ok {
			fs.SetConsole(newLC.Console)
		}
		log.Info().Bool("console", newLC.Console).Msg("Logging configuration updated")
	})
	start("logging", loggingWatcher, err)

	return func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
}

func run(ctx context.Context, cfg *config.Config, mc *config.MonitorConfig, lc *logger.Config, monitorPath, loggingPath string) error {
	log := logger.WithComponent("main")

	deviceUUID := config.GetDeviceUUID(cfg)
	hostname := config.GetHostname(cfg)

	log.Info().
		Str("device_uuid", deviceUUID).
		Str("hostname", hostname).
		Msg("Device initialized")

	// Phase 1: plugin filter
	_, stopPlugins := setupPlugins(cfg)
	defer stopPlugins()

	// Phase 2: hardware provider and device monitor
	provider, stopProvider, err := openProvider(ctx, cfg.Hardware)
	if err != nil {
		return err
	}
	defer stopProvider()

	load := monitor.NewLoadSampler(counter.NewTotalCPU(), nil, cfg.LoadErrorCooldown)
	device := monitor.NewCPUMonitor(deviceUUID, provider, load)

	// Phase 3: collectors
	registry, err := setupCollectors(device, mc)
	if err != nil {
		return err
	}

	// Phase 4: sender
	snd, err := setupSender(cfg, lc)
	if err != nil {
		return err
	}
	defer func() {
		log.Info().Msg("Closing sender")
		if err := snd.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing sender")
		}
	}()

	// Phase 5: scheduler
	sched := scheduler.New(registry, snd, deviceUUID, hostname, nil)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Phase 6: watchers
	cleanupWatchers := setupWatchers(registry, sched, snd, monitorPath, loggingPath)
	defer cleanupWatchers()

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	sched.Stop()
	return nil
}
