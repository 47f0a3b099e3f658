package counter

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"
)

type fakeTimes struct {
	stats []cpu.TimesStat
	err   error
}

func (f *fakeTimes) next(ctx context.Context, percpu bool) ([]cpu.TimesStat, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.stats) == 0 {
		return nil, nil
	}
	t := f.stats[0]
	if len(f.stats) > 1 {
		f.stats = f.stats[1:]
	}
	return []cpu.TimesStat{t}, nil
}

func TestPercentSource_Delta(t *testing.T) {
	f := &fakeTimes{stats: []cpu.TimesStat{
		{CPU: "cpu-total", User: 10, System: 10, Idle: 80},
		{CPU: "cpu-total", User: 40, System: 20, Idle: 140},
		{CPU: "cpu-total", User: 40, System: 20, Idle: 240},
	}}
	s := newPercentSource(f.next)

	got, err := s.Sample()
	if err != nil {
		t.Fatal(err)
	}
	// busy 20 -> 60, total 100 -> 200
	if got != 40 {
		t.Errorf("first sample = %v, want 40", got)
	}

	got, _ = s.Sample()
	if got != 0 {
		t.Errorf("idle interval = %v, want 0", got)
	}
}

func TestPercentSource_IowaitIsIdle(t *testing.T) {
	f := &fakeTimes{stats: []cpu.TimesStat{
		{User: 0, Idle: 0},
		{User: 50, Iowait: 50},
	}}
	s := newPercentSource(f.next)
	if got, _ := s.Sample(); got != 50 {
		t.Errorf("Sample = %v, want 50", got)
	}
}

func TestPercentSource_Errors(t *testing.T) {
	s := newPercentSource((&fakeTimes{err: errors.New("proc not mounted")}).next)
	if _, err := s.Sample(); err == nil {
		t.Error("expected error")
	}

	s = newPercentSource((&fakeTimes{}).next)
	if _, err := s.Sample(); err == nil {
		t.Error("expected error when no times are reported")
	}
}

func TestPercentSource_PrimedLate(t *testing.T) {
	f := &fakeTimes{err: errors.New("transient")}
	s := newPercentSource(f.next)

	f.err = nil
	f.stats = []cpu.TimesStat{{User: 10, Idle: 10}, {User: 20, Idle: 10}}
	if got, err := s.Sample(); err != nil || got != 0 {
		t.Errorf("priming sample = (%v, %v), want (0, nil)", got, err)
	}
	if got, _ := s.Sample(); got != 100 {
		t.Errorf("Sample = %v, want 100", got)
	}
}

func TestNewTotalCPU(t *testing.T) {
	src := NewTotalCPU()
	v, err := src.Sample()
	if err != nil {
		t.Skipf("utilization counter not available: %v", err)
	}
	if v < 0 || v > 100 {
		t.Errorf("utilization %v out of range", v)
	}
}
