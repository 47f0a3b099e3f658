// Package scheduler provides metric collection scheduling functionality.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"devicemonitor/internal/collector"
	"devicemonitor/internal/logger"
	"devicemonitor/internal/sender"
)

const (
	collectTimeout = 30 * time.Second
	sendTimeout    = 10 * time.Second
)

// CollectorSource supplies the collectors to run. *collector.Registry
// satisfies it.
type CollectorSource interface {
	EnabledCollectors() []collector.Collector
}

// Scheduler runs each enabled collector on its own goroutine and interval,
// so a slow hardware query never delays another reading.
type Scheduler struct {
	source     CollectorSource
	sender     sender.Sender
	deviceUUID string
	hostname   string
	tags       map[string]string
	clock      clock.Clock

	mu        sync.Mutex
	running   bool
	parentCtx context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a new scheduler with the given components.
func New(source CollectorSource, s sender.Sender, deviceUUID, hostname string, tags map[string]string) *Scheduler {
	return &Scheduler{
		source:     source,
		sender:     s,
		deviceUUID: deviceUUID,
		hostname:   hostname,
		tags:       tags,
		clock:      clock.New(),
	}
}

// Start begins the metric collection schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true
	s.parentCtx = ctx

	log := logger.WithComponent("scheduler")

	log.Info().Msg("Starting scheduler")
	s.startCollectors()
	return nil
}

// startCollectors must be called with s.mu held.
func (s *Scheduler) startCollectors() {
	log := logger.WithComponent("scheduler")

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(s.parentCtx)

	collectors := s.source.EnabledCollectors()
	log.Info().Int("enabled_count", len(collectors)).Msg("Enabled collectors count")
	for _, c := range collectors {
		log.Info().Str("collector", c.Name()).Msg("Collector is enabled")
		s.wg.Add(1)
		go s.runCollector(ctx, c)
	}
}

// stopCollectors must be called with s.mu held.
func (s *Scheduler) stopCollectors() {
	s.cancel()
	s.wg.Wait()
}

// Reconfigure restarts the collector goroutines so changed intervals and
// enabled flags take effect. It does nothing when the scheduler is stopped.
func (s *Scheduler) Reconfigure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	log := logger.WithComponent("scheduler")

	log.Info().Msg("Reconfiguring collectors")
	s.stopCollectors()
	s.startCollectors()
}

// Stop stops the scheduler and waits for all collectors to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false

	log := logger.WithComponent("scheduler")
	log.Info().Msg("Stopping scheduler, waiting for collectors to finish")
	s.stopCollectors()
	log.Info().Msg("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runCollector(ctx context.Context, c collector.Collector) {
	defer s.wg.Done()

	log := logger.WithComponent("scheduler")
	name := c.Name()
	interval := c.Interval()

	log.Info().
		Str("collector", name).
		Dur("interval", interval).
		Msg("Starting collector")

	// Initial collection
	s.collect(ctx, c)

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("collector", name).Msg("Collector stopped")
			return
		case <-ticker.C:
			s.collect(ctx, c)
		}
	}
}

func (s *Scheduler) collect(ctx context.Context, c collector.Collector) {
	log := logger.WithComponent("scheduler")
	name := c.Name()

	collectCtx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	startTime := s.clock.Now()
	data, err := c.Collect(collectCtx)
	duration := s.clock.Since(startTime)

	if err != nil {
		log.Error().
			Err(err).
			Str("collector", name).
			Dur("duration", duration).
			Msg("Collection failed")
		return
	}

	if data == nil {
		log.Warn().
			Str("collector", name).
			Msg("Collector returned nil data")
		return
	}

	data.DeviceUUID = s.deviceUUID
	data.Hostname = s.hostname
	data.Tags = s.tags

	sendCtx, sendCancel := context.WithTimeout(ctx, sendTimeout)
	defer sendCancel()

	if err := s.sender.Send(sendCtx, data); err != nil {
		log.Error().
			Err(err).
			Str("collector", name).
			Msg("Failed to send metrics")
		return
	}

	log.Debug().
		Str("collector", name).
		Dur("duration", duration).
		Msg("Collection completed")
}
