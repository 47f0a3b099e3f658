//go:build windows
// +build windows

package service

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

// startupErrorEventID is the event ID of startup failures under the Name source.
const startupErrorEventID = 1

// ReportStartupError records err in the Application event log, where "net
// start" and Event Viewer show it before the file logger exists. Failures to
// reach the event log are ignored.
func ReportStartupError(err error) {
	// An already registered source makes this fail; the source is usable.
	_ = eventlog.InstallAsEventCreate(Name, eventlog.Error|eventlog.Warning|eventlog.Info)

	elog, openErr := eventlog.Open(Name)
	if openErr != nil {
		return
	}
	defer elog.Close()

	_ = elog.Error(startupErrorEventID, fmt.Sprintf("%s failed to start: %v", Name, err))
}
