package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StartupErrorFile is the file name WriteStartupErrorFile writes into logDir.
const StartupErrorFile = "startup-error.log"

// WriteStartupErrorFile records a startup error next to the logs, where it
// is found even when the logger never started. Only the most recent error
// is kept. It returns the file path, or "" if the file could not be written.
func WriteStartupErrorFile(logDir string, err error) string {
	_ = os.MkdirAll(logDir, 0755)

	path := filepath.Join(logDir, StartupErrorFile)
	f, ferr := os.Create(path)
	if ferr != nil {
		return ""
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] %s STARTUP ERROR\n%v\n", ts, Name, err)
	return path
}
