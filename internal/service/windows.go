//go:build windows
// +build windows

package service

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows/svc"

	"devicemonitor/internal/logger"
)

const acceptedCommands = svc.AcceptStop | svc.AcceptShutdown

// WindowsService runs RunFunc under the service control manager. Started
// from a console it behaves like the Unix service and stops on Ctrl+C.
type WindowsService struct {
	runner
}

// NewService creates a new platform-specific service.
func NewService(runFunc RunFunc) Service {
	return &WindowsService{runner: runner{runFunc: runFunc}}
}

// Run starts the service.
func (s *WindowsService) Run(ctx context.Context) error {
	if s.IsService() {
		return svc.Run(Name, s)
	}

	log := logger.WithComponent("windows-service")
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)

	return s.untilSignal(log, s.start(ctx), signals)
}

// IsService reports whether the process was started by the service control
// manager.
func (s *WindowsService) IsService() bool {
	isService, err := svc.IsWindowsService()
	return err == nil && isService
}

// Execute implements svc.Handler.
func (s *WindowsService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	log := logger.WithComponent("windows-service")

	changes <- svc.Status{State: svc.StartPending}
	done := s.start(context.Background())
	changes <- svc.Status{State: svc.Running, Accepts: acceptedCommands}
	log.Info().Str("service", Name).Msg("Windows service started")

	for {
		select {
		case c := <-r:
			if s.control(log, c, changes, done) {
				changes <- svc.Status{State: svc.Stopped}
				return false, 0
			}

		case err := <-done:
			changes <- svc.Status{State: svc.Stopped}
			if err != nil {
				log.Error().Err(err).Msg("Service run function exited with error")
				return true, 1
			}
			return false, 0
		}
	}
}

// control handles one control request and reports whether the service has
// stopped.
func (s *WindowsService) control(log zerolog.Logger, c svc.ChangeRequest, changes chan<- svc.Status, done <-chan error) bool {
	switch c.Cmd {
	case svc.Interrogate:
		// The SCM expects the status twice.
		changes <- c.CurrentStatus
		time.Sleep(100 * time.Millisecond)
		changes <- c.CurrentStatus
		return false

	case svc.Stop, svc.Shutdown:
		log.Info().Uint32("cmd", uint32(c.Cmd)).Msg("Stop requested by service control manager")
		changes <- svc.Status{State: svc.StopPending}
		s.Stop()

		select {
		case <-done:
		case <-time.After(stopTimeout):
			log.Warn().Dur("timeout", stopTimeout).Msg("Run function did not return before the stop timeout")
		}
		return true

	default:
		log.Warn().Uint32("cmd", uint32(c.Cmd)).Msg("Unexpected service control command")
		return false
	}
}
