package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

func newTestThrottle() (*Throttle, *clock.Mock, *bytes.Buffer) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	mock := clock.NewMock()
	return NewThrottle(mock, func() zerolog.Logger { return l }), mock, &buf
}

func TestThrottle_SuppressesWithinCooldown(t *testing.T) {
	th, mock, buf := newTestThrottle()

	for i := 0; i < 5; i++ {
		th.ErrorDelayed("CPUDIAG", "counter failed", 5*time.Minute)
		mock.Add(30 * time.Second)
	}

	if n := strings.Count(buf.String(), "counter failed"); n != 1 {
		t.Errorf("expected 1 entry within cooldown, got %d", n)
	}
}

func TestThrottle_LogsAgainAfterCooldown(t *testing.T) {
	th, mock, buf := newTestThrottle()

	if !th.ErrorDelayed("CPUDIAG", "counter failed", 5*time.Minute) {
		t.Fatal("first entry should be written")
	}
	mock.Add(4*time.Minute + 59*time.Second)
	if th.ErrorDelayed("CPUDIAG", "counter failed", 5*time.Minute) {
		t.Error("entry inside the cooldown should be suppressed")
	}
	mock.Add(time.Second)
	if !th.ErrorDelayed("CPUDIAG", "counter failed", 5*time.Minute) {
		t.Error("entry after the cooldown should be written")
	}

	if n := strings.Count(buf.String(), "counter failed"); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
	if !strings.Contains(buf.String(), `"tag":"CPUDIAG"`) {
		t.Errorf("tag missing from entry: %s", buf.String())
	}
}

func TestThrottle_TagsAreIndependent(t *testing.T) {
	th, _, buf := newTestThrottle()

	th.ErrorDelayed("CPUDIAG", "load", time.Minute)
	th.ErrorDelayed("TEMP", "temperature", time.Minute)
	th.ErrorDelayed("CPUDIAG", "load", time.Minute)

	out := buf.String()
	if strings.Count(out, `"tag":"CPUDIAG"`) != 1 || strings.Count(out, `"tag":"TEMP"`) != 1 {
		t.Errorf("unexpected entries: %s", out)
	}
}
