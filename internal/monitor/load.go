package monitor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"devicemonitor/internal/logger"
)

// LoadUnavailable is reported when no utilization sample could be taken.
const LoadUnavailable = -1

// DefaultLoadErrorCooldown is how long repeated sampling errors stay quiet.
const DefaultLoadErrorCooldown = 5 * time.Minute

const loadLogTag = "CPUDIAG"

var errNoCounter = errors.New("utilization counter not initialized")

// CounterSource yields the latest value of a utilization series.
type CounterSource interface {
	Sample() (float64, error)
}

// DelayedLogger logs at most once per tag per cooldown.
type DelayedLogger interface {
	ErrorDelayed(tag, msg string, cooldown time.Duration) bool
}

type delayedLoggerFunc func(tag, msg string, cooldown time.Duration) bool

func (f delayedLoggerFunc) ErrorDelayed(tag, msg string, cooldown time.Duration) bool {
	return f(tag, msg, cooldown)
}

// LoadSampler reads the "all cores" utilization counter. Failures are
// logged through a rate-limited channel and reported as LoadUnavailable.
type LoadSampler struct {
	mu       sync.Mutex
	source   CounterSource
	log      DelayedLogger
	cooldown time.Duration
}

// NewLoadSampler binds a sampler to source. A nil log uses the process-wide
// delayed logger; a non-positive cooldown uses DefaultLoadErrorCooldown.
func NewLoadSampler(source CounterSource, log DelayedLogger, cooldown time.Duration) *LoadSampler {
	if log == nil {
		log = delayedLoggerFunc(logger.ErrorDelayed)
	}
	if cooldown <= 0 {
		cooldown = DefaultLoadErrorCooldown
	}
	return &LoadSampler{
		source:   source,
		log:      log,
		cooldown: cooldown,
	}
}

// Load returns the latest utilization on a 0-100 scale or LoadUnavailable.
// Callers must not read LoadUnavailable as zero load.
func (l *LoadSampler) Load() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, err := l.sample()
	if err != nil {
		l.log.ErrorDelayed(loadLogTag, err.Error(), l.cooldown)
		return LoadUnavailable
	}
	return v
}

func (l *LoadSampler) sample() (v float64, err error) {
	if l.source == nil {
		return 0, errNoCounter
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("utilization counter panicked: %v", r)
		}
	}()
	return l.source.Sample()
}
