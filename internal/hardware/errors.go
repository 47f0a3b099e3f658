package hardware

import "errors"

var (
	// ErrComputerClosed is returned when a closed computer is used.
	ErrComputerClosed = errors.New("computer is closed")

	// ErrSubsystemUnavailable is returned when an enabled subsystem has no hardware.
	ErrSubsystemUnavailable = errors.New("hardware subsystem unavailable")
)
