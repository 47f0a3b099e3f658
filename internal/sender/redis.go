package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"devicemonitor/internal/collector"
	"devicemonitor/internal/config"
	"devicemonitor/internal/logger"
	"devicemonitor/internal/network"
)

// RedisSender keeps the latest value of every metric type in one hash per
// device: HSET <prefix><device_uuid> <type> <json>. A non-zero TTL expires
// the hash when the device stops reporting.
type RedisSender struct {
	client *redis.Client
	prefix string
	cfg    config.RedisConfig

	mu     sync.RWMutex
	closed bool
}

// NewRedisSender creates a Redis sender. The connection is established
// lazily by the first Send.
func NewRedisSender(cfg config.RedisConfig, socksCfg config.SOCKSConfig) (*RedisSender, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis sender requires an Address")
	}

	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	dial, err := network.ContextDialFunc(socksCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for Redis: %w", err)
	}
	if dial != nil {
		opts.Dialer = dial
	}

	log := logger.WithComponent("redis-sender")

	log.Info().
		Str("address", cfg.Address).
		Int("db", cfg.DB).
		Str("key_prefix", cfg.KeyPrefix).
		Dur("ttl", cfg.TTL).
		Bool("socks", dial != nil).
		Msg("RedisSender initialized")

	return &RedisSender{
		client: redis.NewClient(opts),
		prefix: cfg.KeyPrefix,
		cfg:    cfg,
	}, nil
}

// Key returns the hash key holding deviceUUID's metrics.
func (s *RedisSender) Key(deviceUUID string) string {
	return s.prefix + deviceUUID
}

// Send stores data under its type in the device hash.
func (s *RedisSender) Send(ctx context.Context, data *collector.MetricData) error {
	return s.SendBatch(ctx, []*collector.MetricData{data})
}

// SendBatch stores all items in one pipeline.
func (s *RedisSender) SendBatch(ctx context.Context, data []*collector.MetricData) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if len(data) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	expire := make(map[string]bool)
	for _, d := range data {
		value, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal metric data: %w", err)
		}
		key := s.Key(d.DeviceUUID)
		pipe.HSet(ctx, key, d.Type, value)
		if s.cfg.TTL > 0 && !expire[key] {
			expire[key] = true
			pipe.Expire(ctx, key, s.cfg.TTL)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis HSET to %s failed: %w", s.cfg.Address, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
