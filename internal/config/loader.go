package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"devicemonitor/internal/logger"
)

// rawConfig is used for JSON unmarshaling with duration strings.
type rawConfig struct {
	DeviceUUID        string            `json:"DeviceUUID"`
	Hostname          string            `json:"Hostname"`
	SenderType        string            `json:"SenderType"`
	File              FileConfig        `json:"File"`
	Kafka             rawKafkaConfig    `json:"Kafka"`
	Redis             rawRedisConfig    `json:"Redis"`
	SOCKSProxy        SOCKSConfig       `json:"SocksProxy"`
	Hardware          rawHardwareConfig `json:"Hardware"`
	Plugins           PluginsConfig     `json:"Plugins"`
	LoadErrorCooldown string            `json:"LoadErrorCooldown"`
}

type rawKafkaConfig struct {
	Brokers        []string `json:"Brokers"`
	Topic          string   `json:"Topic"`
	Compression    string   `json:"Compression"`
	RequiredAcks   int      `json:"RequiredAcks"`
	MaxRetries     int      `json:"MaxRetries"`
	RetryBackoff   string   `json:"RetryBackoff"`
	FlushFrequency string   `json:"FlushFrequency"`
	FlushMessages  int      `json:"FlushMessages"`
	BatchSize      int      `json:"BatchSize"`
	Timeout        string   `json:"Timeout"`
	EnableTLS      bool     `json:"EnableTLS"`
	TLSCertFile    string   `json:"TLSCertFile"`
	TLSKeyFile     string   `json:"TLSKeyFile"`
	TLSCAFile      string   `json:"TLSCAFile"`
	SASLEnabled    bool     `json:"SASLEnabled"`
	SASLMechanism  string   `json:"SASLMechanism"`
	SASLUser       string   `json:"SASLUser"`
	SASLPassword   string   `json:"SASLPassword"`
}

type rawRedisConfig struct {
	Address   string `json:"Address"`
	Password  string `json:"Password"`
	DB        int    `json:"DB"`
	KeyPrefix string `json:"KeyPrefix"`
	TTL       string `json:"TTL"`
}

type rawHardwareConfig struct {
	Provider       string `json:"Provider"`
	HelperPath     string `json:"HelperPath"`
	RequestTimeout string `json:"RequestTimeout"`
	SnapshotPath   string `json:"SnapshotPath"`
	SysfsRoot      string `json:"SysfsRoot"`
}

type rawCollectorConfig struct {
	Enabled  bool   `json:"Enabled"`
	Interval string `json:"Interval"`
}

type rawLoggingConfig struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	Format     string `json:"Format"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
}

// parseDuration parses s when it is set, naming field in the error.
func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", field, err)
	}
	return d, nil
}

// Load reads configuration from the specified file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from JSON bytes.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := DefaultConfig()
	parsed, err := convertRawConfig(&raw)
	if err != nil {
		return nil, err
	}

	cfg.Merge(parsed)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func convertRawConfig(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		DeviceUUID: raw.DeviceUUID,
		Hostname:   raw.Hostname,
		SenderType: raw.SenderType,
		File:       raw.File,
		SOCKSProxy: raw.SOCKSProxy,
		Plugins:    raw.Plugins,
	}

	kafka, err := convertRawKafka(&raw.Kafka)
	if err != nil {
		return nil, err
	}
	cfg.Kafka = *kafka

	cfg.Redis = RedisConfig{
		Address:   raw.Redis.Address,
		Password:  raw.Redis.Password,
		DB:        raw.Redis.DB,
		KeyPrefix: raw.Redis.KeyPrefix,
	}
	if cfg.Redis.TTL, err = parseDuration("Redis.TTL", raw.Redis.TTL); err != nil {
		return nil, err
	}

	cfg.Hardware = HardwareConfig{
		Provider:     raw.Hardware.Provider,
		HelperPath:   raw.Hardware.HelperPath,
		SnapshotPath: raw.Hardware.SnapshotPath,
		SysfsRoot:    raw.Hardware.SysfsRoot,
	}
	if cfg.Hardware.RequestTimeout, err = parseDuration("Hardware.RequestTimeout", raw.Hardware.RequestTimeout); err != nil {
		return nil, err
	}

	if cfg.LoadErrorCooldown, err = parseDuration("LoadErrorCooldown", raw.LoadErrorCooldown); err != nil {
		return nil, err
	}

	return cfg, nil
}

func convertRawKafka(raw *rawKafkaConfig) (*KafkaConfig, error) {
	kafka := &KafkaConfig{
		Brokers:       raw.Brokers,
		Topic:         raw.Topic,
		Compression:   raw.Compression,
		RequiredAcks:  raw.RequiredAcks,
		MaxRetries:    raw.MaxRetries,
		FlushMessages: raw.FlushMessages,
		BatchSize:     raw.BatchSize,
		EnableTLS:     raw.EnableTLS,
		TLSCertFile:   raw.TLSCertFile,
		TLSKeyFile:    raw.TLSKeyFile,
		TLSCAFile:     raw.TLSCAFile,
		SASLEnabled:   raw.SASLEnabled,
		SASLMechanism: raw.SASLMechanism,
		SASLUser:      raw.SASLUser,
		SASLPassword:  raw.SASLPassword,
	}

	var err error
	if kafka.RetryBackoff, err = parseDuration("RetryBackoff", raw.RetryBackoff); err != nil {
		return nil, err
	}
	if kafka.FlushFrequency, err = parseDuration("FlushFrequency", raw.FlushFrequency); err != nil {
		return nil, err
	}
	if kafka.Timeout, err = parseDuration("Timeout", raw.Timeout); err != nil {
		return nil, err
	}

	return kafka, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.SenderType {
	case SenderFile, SenderKafka, SenderRedis:
	default:
		return fmt.Errorf("unknown SenderType %q", c.SenderType)
	}

	switch c.Hardware.Provider {
	case ProviderAuto, ProviderLHM, ProviderHwmon:
	case ProviderSnapshot:
		if c.Hardware.SnapshotPath == "" {
			return fmt.Errorf("hardware provider %q requires SnapshotPath", ProviderSnapshot)
		}
	default:
		return fmt.Errorf("unknown hardware Provider %q", c.Hardware.Provider)
	}

	if c.DeviceUUID != "" {
		if _, err := uuid.Parse(c.DeviceUUID); err != nil {
			return fmt.Errorf("invalid DeviceUUID: %w", err)
		}
	}
	return nil
}

func convertRawCollector(name string, raw *rawCollectorConfig) (*CollectorConfig, error) {
	interval, err := parseDuration("interval for collector "+name, raw.Interval)
	if err != nil {
		return nil, err
	}
	return &CollectorConfig{Enabled: raw.Enabled, Interval: interval}, nil
}

func convertRawLogging(raw *rawLoggingConfig) logger.Config {
	return logger.Config{
		Level:      raw.Level,
		FilePath:   raw.FilePath,
		Format:     raw.Format,
		MaxSizeMB:  raw.MaxSizeMB,
		MaxBackups: raw.MaxBackups,
		MaxAgeDays: raw.MaxAgeDays,
		Compress:   raw.Compress,
		Console:    raw.Console,
	}
}

// rawMonitorConfig is used for JSON unmarshaling of Monitor.json.
type rawMonitorConfig struct {
	Collectors map[string]rawCollectorConfig `json:"Collectors"`
}

// LoadMonitor reads monitor configuration from the specified file path.
func LoadMonitor(path string) (*MonitorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read monitor config file: %w", err)
	}
	return ParseMonitor(data)
}

// ParseMonitor parses monitor configuration from JSON bytes.
func ParseMonitor(data []byte) (*MonitorConfig, error) {
	var raw rawMonitorConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse monitor config JSON: %w", err)
	}

	mc := DefaultMonitorConfig()

	if len(raw.Collectors) > 0 {
		parsed := &MonitorConfig{
			Collectors: make(map[string]CollectorConfig),
		}
		for name, rawColl := range raw.Collectors {
			coll, err := convertRawCollector(name, &rawColl)
			if err != nil {
				return nil, err
			}
			parsed.Collectors[name] = *coll
		}
		mc.Merge(parsed)
	}

	return mc, nil
}

// LoadLogging reads logging configuration from the specified file path.
func LoadLogging(path string) (*logger.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read logging config file: %w", err)
	}
	return ParseLogging(data)
}

// ParseLogging parses logging configuration from JSON bytes.
func ParseLogging(data []byte) (*logger.Config, error) {
	var raw rawLoggingConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse logging config JSON: %w", err)
	}

	def := logger.DefaultConfig()
	parsed := convertRawLogging(&raw)

	if parsed.Level != "" {
		def.Level = parsed.Level
	}
	if parsed.FilePath != "" {
		def.FilePath = parsed.FilePath
	}
	if parsed.Format != "" {
		def.Format = parsed.Format
	}
	if parsed.MaxSizeMB != 0 {
		def.MaxSizeMB = parsed.MaxSizeMB
	}
	if parsed.MaxBackups != 0 {
		def.MaxBackups = parsed.MaxBackups
	}
	if parsed.MaxAgeDays != 0 {
		def.MaxAgeDays = parsed.MaxAgeDays
	}
	def.Compress = parsed.Compress
	def.Console = parsed.Console

	return &def, nil
}

// LoadSplit loads configuration from three separate files:
// configPath (DeviceMonitor.json), monitorPath (Monitor.json), loggingPath (Logging.json).
func LoadSplit(configPath, monitorPath, loggingPath string) (*Config, *MonitorConfig, *logger.Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	mc, err := LoadMonitor(monitorPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load monitor config: %w", err)
	}

	lc, err := LoadLogging(loggingPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load logging config: %w", err)
	}

	return cfg, mc, lc, nil
}

// GetHostname returns the configured hostname or the system hostname.
func GetHostname(cfg *Config) string {
	if cfg.Hostname != "" {
		return cfg.Hostname
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// GetDeviceUUID returns the configured device UUID in canonical form, or a
// name-based UUID derived from the hostname so restarts report the same id.
func GetDeviceUUID(cfg *Config) string {
	if id, err := uuid.Parse(cfg.DeviceUUID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(strings.ToLower(GetHostname(cfg)))).String()
}
