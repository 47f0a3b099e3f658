// Package config provides configuration management for the DeviceMonitor agent.
package config

import (
	"time"
)

// Sender types.
const (
	SenderFile  = "file"
	SenderKafka = "kafka"
	SenderRedis = "redis"
)

// Hardware providers.
const (
	ProviderAuto     = "auto"
	ProviderLHM      = "lhm"
	ProviderHwmon    = "hwmon"
	ProviderSnapshot = "snapshot"
)

// Config is the root configuration structure (DeviceMonitor.json).
type Config struct {
	DeviceUUID        string         `json:"DeviceUUID"` // empty derives one from the hostname
	Hostname          string         `json:"Hostname"`
	SenderType        string         `json:"SenderType"` // "file", "kafka" or "redis"
	File              FileConfig     `json:"File"`
	Kafka             KafkaConfig    `json:"Kafka"`
	Redis             RedisConfig    `json:"Redis"`
	SOCKSProxy        SOCKSConfig    `json:"SocksProxy"`
	Hardware          HardwareConfig `json:"Hardware"`
	Plugins           PluginsConfig  `json:"Plugins"`
	LoadErrorCooldown time.Duration  `json:"LoadErrorCooldown"`
}

// FileConfig contains settings for the file sender.
type FileConfig struct {
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	Console    bool   `json:"Console"`
	Pretty     bool   `json:"Pretty"`
}

// KafkaConfig contains Kafka connection settings.
type KafkaConfig struct {
	Brokers        []string      `json:"Brokers"`
	Topic          string        `json:"Topic"`
	Compression    string        `json:"Compression"`
	RequiredAcks   int           `json:"RequiredAcks"`
	MaxRetries     int           `json:"MaxRetries"`
	RetryBackoff   time.Duration `json:"RetryBackoff"`
	FlushFrequency time.Duration `json:"FlushFrequency"`
	FlushMessages  int           `json:"FlushMessages"`
	BatchSize      int           `json:"BatchSize"`
	Timeout        time.Duration `json:"Timeout"`
	EnableTLS      bool          `json:"EnableTLS"`
	TLSCertFile    string        `json:"TLSCertFile"`
	TLSKeyFile     string        `json:"TLSKeyFile"`
	TLSCAFile      string        `json:"TLSCAFile"`
	SASLEnabled    bool          `json:"SASLEnabled"`
	SASLMechanism  string        `json:"SASLMechanism"`
	SASLUser       string        `json:"SASLUser"`
	SASLPassword   string        `json:"SASLPassword"`
}

// RedisConfig contains settings for the Redis sender.
type RedisConfig struct {
	Address   string        `json:"Address"`
	Password  string        `json:"Password"`
	DB        int           `json:"DB"`
	KeyPrefix string        `json:"KeyPrefix"`
	TTL       time.Duration `json:"TTL"` // 0 keeps keys forever
}

// SOCKSConfig contains SOCKS5 proxy settings.
type SOCKSConfig struct {
	Host string `json:"Host"`
	Port int    `json:"Port"`
}

// HardwareConfig selects and configures the hardware tree provider.
type HardwareConfig struct {
	Provider       string        `json:"Provider"` // "auto", "lhm", "hwmon" or "snapshot"
	HelperPath     string        `json:"HelperPath"`
	RequestTimeout time.Duration `json:"RequestTimeout"`
	SnapshotPath   string        `json:"SnapshotPath"`
	SysfsRoot      string        `json:"SysfsRoot"`
}

// PluginsConfig locates the supported plugins filter.
type PluginsConfig struct {
	FilterPath string `json:"FilterPath"`
	Watch      bool   `json:"Watch"`
}

// CollectorConfig contains settings for individual collectors.
type CollectorConfig struct {
	Enabled  bool          `json:"Enabled"`
	Interval time.Duration `json:"Interval"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SenderType: SenderFile,
		File: FileConfig{
			FilePath:   "log/DeviceMonitor/metrics.jsonl",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Kafka: KafkaConfig{
			Brokers:        []string{"localhost:9092"},
			Topic:          "device-metrics",
			Compression:    "snappy",
			RequiredAcks:   1,
			MaxRetries:     3,
			RetryBackoff:   100 * time.Millisecond,
			FlushFrequency: 500 * time.Millisecond,
			FlushMessages:  100,
			BatchSize:      16384,
			Timeout:        10 * time.Second,
		},
		Redis: RedisConfig{
			Address:   "localhost:6379",
			KeyPrefix: "devicemonitor:",
		},
		Hardware: HardwareConfig{
			Provider:       ProviderAuto,
			RequestTimeout: 10 * time.Second,
		},
		Plugins: PluginsConfig{
			FilterPath: "internals/SupportedPluginsFilter.json",
		},
		LoadErrorCooldown: 5 * time.Minute,
	}
}

// Merge applies non-zero values from other to this config.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.DeviceUUID != "" {
		c.DeviceUUID = other.DeviceUUID
	}
	if other.Hostname != "" {
		c.Hostname = other.Hostname
	}
	if other.SenderType != "" {
		c.SenderType = other.SenderType
	}

	if other.File.FilePath != "" {
		c.File.FilePath = other.File.FilePath
	}
	if other.File.MaxSizeMB != 0 {
		c.File.MaxSizeMB = other.File.MaxSizeMB
	}
	if other.File.MaxBackups != 0 {
		c.File.MaxBackups = other.File.MaxBackups
	}
	c.File.Console = other.File.Console
	c.File.Pretty = other.File.Pretty

	if len(other.Kafka.Brokers) > 0 {
		c.Kafka.Brokers = other.Kafka.Brokers
	}
	if other.Kafka.Topic != "" {
		c.Kafka.Topic = other.Kafka.Topic
	}
	if other.Kafka.Compression != "" {
		c.Kafka.Compression = other.Kafka.Compression
	}
	if other.Kafka.RequiredAcks != 0 {
		c.Kafka.RequiredAcks = other.Kafka.RequiredAcks
	}
	if other.Kafka.MaxRetries != 0 {
		c.Kafka.MaxRetries = other.Kafka.MaxRetries
	}
	if other.Kafka.RetryBackoff != 0 {
		c.Kafka.RetryBackoff = other.Kafka.RetryBackoff
	}
	if other.Kafka.FlushFrequency != 0 {
		c.Kafka.FlushFrequency = other.Kafka.FlushFrequency
	}
	if other.Kafka.FlushMessages != 0 {
		c.Kafka.FlushMessages = other.Kafka.FlushMessages
	}
	if other.Kafka.BatchSize != 0 {
		c.Kafka.BatchSize = other.Kafka.BatchSize
	}
	if other.Kafka.Timeout != 0 {
		c.Kafka.Timeout = other.Kafka.Timeout
	}
	c.Kafka.EnableTLS = other.Kafka.EnableTLS
	if other.Kafka.TLSCertFile != "" {
		c.Kafka.TLSCertFile = other.Kafka.TLSCertFile
	}
	if other.Kafka.TLSKeyFile != "" {
		c.Kafka.TLSKeyFile = other.Kafka.TLSKeyFile
	}
	if other.Kafka.TLSCAFile != "" {
		c.Kafka.TLSCAFile = other.Kafka.TLSCAFile
	}
	c.Kafka.SASLEnabled = other.Kafka.SASLEnabled
	if other.Kafka.SASLMechanism != "" {
		c.Kafka.SASLMechanism = other.Kafka.SASLMechanism
	}
	if other.Kafka.SASLUser != "" {
		c.Kafka.SASLUser = other.Kafka.SASLUser
	}
	if other.Kafka.SASLPassword != "" {
		c.Kafka.SASLPassword = other.Kafka.SASLPassword
	}

	if other.Redis.Address != "" {
		c.Redis.Address = other.Redis.Address
	}
	if other.Redis.Password != "" {
		c.Redis.Password = other.Redis.Password
	}
	if other.Redis.DB != 0 {
		c.Redis.DB = other.Redis.DB
	}
	if other.Redis.KeyPrefix != "" {
		c.Redis.KeyPrefix = other.Redis.KeyPrefix
	}
	if other.Redis.TTL != 0 {
		c.Redis.TTL = other.Redis.TTL
	}

	if other.SOCKSProxy.Host != "" {
		c.SOCKSProxy.Host = other.SOCKSProxy.Host
	}
	if other.SOCKSProxy.Port != 0 {
		c.SOCKSProxy.Port = other.SOCKSProxy.Port
	}

	if other.Hardware.Provider != "" {
		c.Hardware.Provider = other.Hardware.Provider
	}
	if other.Hardware.HelperPath != "" {
		c.Hardware.HelperPath = other.Hardware.HelperPath
	}
	if other.Hardware.RequestTimeout != 0 {
		c.Hardware.RequestTimeout = other.Hardware.RequestTimeout
	}
	if other.Hardware.SnapshotPath != "" {
		c.Hardware.SnapshotPath = other.Hardware.SnapshotPath
	}
	if other.Hardware.SysfsRoot != "" {
		c.Hardware.SysfsRoot = other.Hardware.SysfsRoot
	}

	if other.Plugins.FilterPath != "" {
		c.Plugins.FilterPath = other.Plugins.FilterPath
	}
	c.Plugins.Watch = other.Plugins.Watch

	if other.LoadErrorCooldown != 0 {
		c.LoadErrorCooldown = other.LoadErrorCooldown
	}
}

// MonitorConfig holds collectors-only configuration (for Monitor.json).
type MonitorConfig struct {
	Collectors map[string]CollectorConfig `json:"Collectors"`
}

// DefaultMonitorConfig returns a MonitorConfig with empty defaults.
// Use ApplyDefaults() with registry-provided defaults for full initialization.
func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		Collectors: make(map[string]CollectorConfig),
	}
}

// ApplyDefaults fills in missing collector entries from the provided defaults.
// Existing entries are not overwritten.
func (mc *MonitorConfig) ApplyDefaults(defaults map[string]CollectorConfig) {
	for name, defCfg := range defaults {
		if _, exists := mc.Collectors[name]; !exists {
			mc.Collectors[name] = defCfg
		}
	}
}

// Merge applies values from other to this MonitorConfig. Enabled is always
// taken; a zero Interval keeps the existing one.
func (mc *MonitorConfig) Merge(other *MonitorConfig) {
	if other == nil {
		return
	}
	for name, collectorCfg := range other.Collectors {
		existing, ok := mc.Collectors[name]
		if !ok {
			mc.Collectors[name] = collectorCfg
			continue
		}
		existing.Enabled = collectorCfg.Enabled
		if collectorCfg.Interval != 0 {
			existing.Interval = collectorCfg.Interval
		}
		mc.Collectors[name] = existing
	}
}
