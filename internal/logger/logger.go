// Package logger provides structured logging with file rotation support.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// asyncWriter makes console writes non-blocking. A stalled console
// (e.g. Windows cmd Quick Edit mode) must never stall the monitor, so messages
// are queued and dropped when the queue is full.
type asyncWriter struct {
	ch     chan []byte
	w      io.Writer
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func newAsyncWriter(w io.Writer, bufSize int) *asyncWriter {
	aw := &asyncWriter{
		ch:   make(chan []byte, bufSize),
		w:    w,
		done: make(chan struct{}),
	}
	go aw.drain()
	return aw
}

func (aw *asyncWriter) Write(p []byte) (int, error) {
	aw.mu.RLock()
	defer aw.mu.RUnlock()
	if aw.closed {
		return len(p), nil
	}

	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case aw.ch <- cp:
	default:
	}
	return len(p), nil
}

func (aw *asyncWriter) drain() {
	defer close(aw.done)
	for p := range aw.ch {
		aw.w.Write(p)
	}
}

// Close flushes queued messages and stops the drain goroutine.
func (aw *asyncWriter) Close() {
	aw.once.Do(func() {
		aw.mu.Lock()
		aw.closed = true
		aw.mu.Unlock()
		close(aw.ch)
		<-aw.done
	})
}

// Config holds the logger configuration.
type Config struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	Format     string `json:"Format"` // "json" (default) or "fixed"
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FilePath:   "log/DeviceMonitor/monitor.log",
		Format:     "json",
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

var (
	mu               sync.RWMutex
	globalLogger     = zerolog.New(os.Stdout).With().Timestamp().Logger()
	prevFileWriter   io.Closer
	prevConsoleAsync *asyncWriter
	serviceMode      bool
)

// SetServiceMode suppresses console output when no console is attached.
func SetServiceMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	serviceMode = enabled
}

// Init (re)initializes the global logger. It is safe to call again on
// configuration reload; writers from the previous call are closed.
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	mu.Lock()
	defer mu.Unlock()

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if prevFileWriter != nil {
		prevFileWriter.Close()
		prevFileWriter = nil
	}
	if prevConsoleAsync != nil {
		prevConsoleAsync.Close()
		prevConsoleAsync = nil
	}

	var writers []io.Writer

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		prevFileWriter = fileWriter

		if cfg.Format == "fixed" {
			writers = append(writers, NewFixedFormatWriter(fileWriter))
		} else {
			writers = append(writers, fileWriter)
		}
	}

	if cfg.Console && !serviceMode {
		aw := newAsyncWriter(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, 1000)
		prevConsoleAsync = aw
		writers = append(writers, aw)
	}

	if len(writers) == 0 && !serviceMode {
		writers = append(writers, os.Stdout)
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = zerolog.MultiLevelWriter(writers...)
	}

	globalLogger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}

// SetOutput replaces the global logger output. Intended for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = zerolog.New(w).With().Timestamp().Logger()
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Info logs an info message.
func Info() *zerolog.Event {
	l := Logger()
	return l.Info()
}

// Warn logs a warning message.
func Warn() *zerolog.Event {
	l := Logger()
	return l.Warn()
}

// Error logs an error message.
func Error() *zerolog.Event {
	l := Logger()
	return l.Error()
}

// WithComponent returns a logger with component field.
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}
