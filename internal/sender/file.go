package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"devicemonitor/internal/collector"
	"devicemonitor/internal/config"
	"devicemonitor/internal/logger"
)

// FileSender writes metrics as JSON lines to a rotating file and optionally
// to the console.
type FileSender struct {
	writer      *lumberjack.Logger
	console     io.Writer
	prettyPrint bool
	mu          sync.Mutex
	closed      bool
}

// NewFileSender creates a new FileSender with the given configuration.
func NewFileSender(cfg config.FileConfig) (*FileSender, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("file sender requires a FilePath")
	}

	dir := filepath.Dir(cfg.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}

	writer := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}

	s := &FileSender{
		writer:      writer,
		prettyPrint: cfg.Pretty,
	}
	if cfg.Console {
		s.console = os.Stdout
	}

	log := logger.WithComponent("file-sender")

	log.Info().
		Str("file_path", cfg.FilePath).
		Bool("console", cfg.Console).
		Bool("pretty", cfg.Pretty).
		Msg("FileSender initialized")

	return s, nil
}

// Send writes a single metric as one JSON line. Pretty output is only used
// for the console copy so the file stays line-delimited.
func (s *FileSender) Send(ctx context.Context, data *collector.MetricData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	line, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal metric data: %w", err)
	}
	if _, err := s.writer.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	if s.console != nil {
		out := line
		if s.prettyPrint {
			if out, err = json.MarshalIndent(data, "", "  "); err != nil {
				return fmt.Errorf("failed to marshal metric data: %w", err)
			}
		}
		fmt.Fprintln(s.console, string(out))
	}

	return nil
}

// SetConsole turns the console copy on or off, following Logging.json.
func (s *FileSender) SetConsole(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.console = os.Stdout
	} else {
		s.console = nil
	}
}

// SendBatch writes multiple metric data items.
func (s *FileSender) SendBatch(ctx context.Context, data []*collector.MetricData) error {
	return sendEach(ctx, s, data)
}

// Close releases resources held by the FileSender.
func (s *FileSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.writer.Close()
}
