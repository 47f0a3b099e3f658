package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// gatedWriter blocks every Write until open is called.
type gatedWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	gate chan struct{}
}

func newGatedWriter() *gatedWriter {
	return &gatedWriter{gate: make(chan struct{})}
}

func (w *gatedWriter) Write(p []byte) (int, error) {
	<-w.gate
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *gatedWriter) open() { close(w.gate) }

func (w *gatedWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestAsyncWriter_DoesNotBlockCaller(t *testing.T) {
	gw := newGatedWriter()
	aw := newAsyncWriter(gw, 10)

	done := make(chan struct{})
	go func() {
		aw.Write([]byte("hello"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked on a stalled writer")
	}

	gw.open()
	aw.Close()
	if gw.String() != "hello" {
		t.Errorf("got %q, want %q", gw.String(), "hello")
	}
}

func TestAsyncWriter_DropsWhenFull(t *testing.T) {
	gw := newGatedWriter()
	aw := newAsyncWriter(gw, 1)
	defer func() {
		gw.open()
		aw.Close()
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			aw.Write([]byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked on a full queue")
	}
}

func TestAsyncWriter_WriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	aw := newAsyncWriter(&buf, 10)
	aw.Write([]byte("a"))
	aw.Close()

	n, err := aw.Write([]byte("late"))
	if err != nil || n != 4 {
		t.Errorf("Write after Close = (%d, %v), want (4, nil)", n, err)
	}
	if buf.String() != "a" {
		t.Errorf("got %q, want %q", buf.String(), "a")
	}
}

func TestInit_WritesFileAndSurvivesReinit(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "monitor.log")
	cfg := Config{Level: "info", FilePath: logFile}

	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info().Msg("first message")

	if err := Init(cfg); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	Info().Msg("second message")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	for _, want := range []string{"first message", "second message"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q", want)
		}
	}
}

func TestInit_FixedFormat(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "monitor.log")
	if err := Init(Config{Level: "debug", FilePath: logFile, Format: "fixed"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	log := WithComponent("monitor")
	log.Info().Int("celsius", 55).Msg("Temperature read")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[INF] [monitor        ] Temperature read celsius=55") {
		t.Errorf("unexpected fixed format output: %q", data)
	}
}
