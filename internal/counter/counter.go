// Package counter provides "all cores" CPU utilization series for the load
// sampler.
package counter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
)

// TimesFunc returns aggregate CPU times.
type TimesFunc func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)

// PercentSource computes utilization from the CPU time deltas between two
// samples. The first sample covers the time since construction.
type PercentSource struct {
	mu    sync.Mutex
	times TimesFunc
	last  cpu.TimesStat
	ready bool
}

// NewPercentSource creates a source reading gopsutil CPU times.
func NewPercentSource() *PercentSource {
	return newPercentSource(cpu.TimesWithContext)
}

func newPercentSource(times TimesFunc) *PercentSource {
	s := &PercentSource{times: times}
	if t, err := s.read(); err == nil {
		s.last, s.ready = t, true
	}
	return s
}

func (s *PercentSource) read() (cpu.TimesStat, error) {
	stats, err := s.times(context.Background(), false)
	if err != nil {
		return cpu.TimesStat{}, fmt.Errorf("failed to read cpu times: %w", err)
	}
	if len(stats) == 0 {
		return cpu.TimesStat{}, errors.New("no cpu times reported")
	}
	return stats[0], nil
}

// Sample returns utilization in percent since the previous sample.
func (s *PercentSource) Sample() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.read()
	if err != nil {
		return 0, err
	}
	if !s.ready {
		s.last, s.ready = t, true
		return 0, nil
	}

	prev := s.last
	s.last = t
	return busyPercent(prev, t), nil
}

func busy(t cpu.TimesStat) (busy, total float64) {
	total = t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	return total - t.Idle - t.Iowait, total
}

func busyPercent(prev, cur cpu.TimesStat) float64 {
	b1, t1 := busy(prev)
	b2, t2 := busy(cur)
	if t2 <= t1 {
		return 0
	}
	if b2 <= b1 {
		return 0
	}
	p := (b2 - b1) / (t2 - t1) * 100
	if p > 100 {
		return 100
	}
	return p
}
