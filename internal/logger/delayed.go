package logger

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Throttle suppresses repeated log entries per tag for a cooldown window.
type Throttle struct {
	clock clock.Clock
	log   func() zerolog.Logger

	mu   sync.Mutex
	last map[string]time.Time
}

// NewThrottle creates a Throttle that writes through log and reads time from clk.
func NewThrottle(clk clock.Clock, log func() zerolog.Logger) *Throttle {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = Logger
	}
	return &Throttle{
		clock: clk,
		log:   log,
		last:  make(map[string]time.Time),
	}
}

// ErrorDelayed logs msg at error level under tag, unless the same tag was
// logged less than cooldown ago. It reports whether the entry was written.
func (t *Throttle) ErrorDelayed(tag, msg string, cooldown time.Duration) bool {
	now := t.clock.Now()

	t.mu.Lock()
	if last, ok := t.last[tag]; ok && now.Sub(last) < cooldown {
		t.mu.Unlock()
		return false
	}
	t.last[tag] = now
	t.mu.Unlock()

	l := t.log()
	l.Error().Str("component", "delayed").Str("tag", tag).Msg(msg)
	return true
}

var defaultThrottle = NewThrottle(nil, nil)

// ErrorDelayed logs through the process-wide Throttle.
func ErrorDelayed(tag, msg string, cooldown time.Duration) bool {
	return defaultThrottle.ErrorDelayed(tag, msg, cooldown)
}
