//go:build !windows
// +build !windows

package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"devicemonitor/internal/logger"
)

// UnixService runs RunFunc until SIGINT or SIGTERM. A second signal while
// shutting down abandons the wait.
type UnixService struct {
	runner
	signals chan os.Signal
}

// NewService creates a new platform-specific service.
func NewService(runFunc RunFunc) Service {
	return newUnixService(runFunc)
}

func newUnixService(runFunc RunFunc) *UnixService {
	return &UnixService{
		runner:  runner{runFunc: runFunc},
		signals: make(chan os.Signal, 1),
	}
}

// Run starts the service and handles signals for graceful shutdown.
func (s *UnixService) Run(ctx context.Context) error {
	log := logger.WithComponent("unix-service")

	signal.Notify(s.signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.signals)

	done := s.start(ctx)
	log.Info().Str("service", Name).Msg("Service started")

	return s.untilSignal(log, done, s.signals)
}

// IsService reports whether stdin is detached, which is the case under
// systemd and most init systems.
func (s *UnixService) IsService() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}
