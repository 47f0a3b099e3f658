//go:build !windows
// +build !windows

package service

// ReportStartupError is a no-op outside Windows; the startup error file is
// the only record there.
func ReportStartupError(err error) {}
