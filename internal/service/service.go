// Package service runs the monitor as a Windows service or under a Unix
// service manager.
package service

import (
	"context"
	"time"
)

// Name is the service and event source name.
const Name = "DeviceMonitor"

// stopTimeout bounds how long a stop request waits for RunFunc to return.
const stopTimeout = 30 * time.Second

// Service defines the interface for platform-specific service management.
type Service interface {
	// Run starts the service. It blocks until the service is stopped.
	Run(ctx context.Context) error

	// Stop requests the service to stop.
	Stop() error

	// IsService returns true if running as a system service.
	IsService() bool
}

// RunFunc runs the monitor until ctx is cancelled.
type RunFunc func(ctx context.Context) error
