package sender

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"devicemonitor/internal/collector"
	"devicemonitor/internal/config"
)

func newTestRedisSender(t *testing.T, ttl time.Duration) (*RedisSender, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisSender(config.RedisConfig{
		Address:   mr.Addr(),
		KeyPrefix: "devicemonitor:",
		TTL:       ttl,
	}, config.SOCKSConfig{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisSender_HSetPerType(t *testing.T) {
	s, mr := newTestRedisSender(t, 0)
	ctx := context.Background()

	if err := s.Send(ctx, testMetric("Load", collector.LoadData{LoadPercent: 12.5})); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(ctx, testMetric("FanSpeed", collector.FanSpeedData{Status: -1})); err != nil {
		t.Fatal(err)
	}

	key := "devicemonitor:2d5c8a8e-7f0b-4a8e-9d7c-0b1e6f3a9c11"
	if got := s.Key("2d5c8a8e-7f0b-4a8e-9d7c-0b1e6f3a9c11"); got != key {
		t.Errorf("Key = %q", got)
	}

	fields, err := mr.HKeys(key)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %v", fields)
	}

	var md struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(mr.HGet(key, "FanSpeed")), &md); err != nil {
		t.Fatal(err)
	}
	if md.Type != "FanSpeed" || string(md.Data) != `{"status":-1,"percent":0}` {
		t.Errorf("unexpected stored value: %+v %s", md, md.Data)
	}

	if ttl := mr.TTL(key); ttl != 0 {
		t.Errorf("expected no TTL, got %v", ttl)
	}
}

func TestRedisSender_LatestValueWins(t *testing.T) {
	s, mr := newTestRedisSender(t, 0)
	ctx := context.Background()

	s.Send(ctx, testMetric("Temperature", collector.TemperatureData{Celsius: 50}))
	s.Send(ctx, testMetric("Temperature", collector.TemperatureData{Celsius: 61}))

	var md collector.MetricData
	md.Data = &collector.TemperatureData{}
	if err := json.Unmarshal([]byte(mr.HGet(s.Key("2d5c8a8e-7f0b-4a8e-9d7c-0b1e6f3a9c11"), "Temperature")), &md); err != nil {
		t.Fatal(err)
	}
	if md.Data.(*collector.TemperatureData).Celsius != 61 {
		t.Errorf("expected the latest reading, got %+v", md.Data)
	}
}

func TestRedisSender_TTL(t *testing.T) {
	s, mr := newTestRedisSender(t, 90*time.Second)

	err := s.SendBatch(context.Background(), []*collector.MetricData{
		testMetric("Load", collector.LoadData{}),
		testMetric("Temperature", collector.TemperatureData{Celsius: 40}),
	})
	if err != nil {
		t.Fatal(err)
	}

	key := s.Key("2d5c8a8e-7f0b-4a8e-9d7c-0b1e6f3a9c11")
	if ttl := mr.TTL(key); ttl != 90*time.Second {
		t.Errorf("TTL = %v, want 90s", ttl)
	}

	mr.FastForward(91 * time.Second)
	if mr.Exists(key) {
		t.Error("hash should expire once the device stops reporting")
	}
}

func TestRedisSender_ServerDown(t *testing.T) {
	s, mr := newTestRedisSender(t, 0)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Send(ctx, testMetric("Load", collector.LoadData{})); err == nil {
		t.Error("expected error when redis is down")
	}
}

func TestRedisSender_Closed(t *testing.T) {
	s, _ := newTestRedisSender(t, 0)
	s.Close()
	if err := s.Send(context.Background(), testMetric("Load", nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestNewRedisSender_RequiresAddress(t *testing.T) {
	if _, err := NewRedisSender(config.RedisConfig{}, config.SOCKSConfig{}); err == nil {
		t.Error("expected error for empty address")
	}
}
