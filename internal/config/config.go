// Package config loads PSG server and client configuration from an optional
// YAML file with environment-variable overrides, the same two-layer scheme
// the rest of this codebase's ancestry uses.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v2"
)

// =============================================================================
// PSG Server & Client Configuration
// =============================================================================

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Cassandra  CassandraConfig  `yaml:"cassandra"`
	Cache      CacheConfig      `yaml:"cache"`
	AuxStore   AuxStoreConfig   `yaml:"aux_store"`
	Processor  ProcessorConfig  `yaml:"processor"`
	Client     ClientConfig     `yaml:"client"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type ServerConfig struct {
	ListenAddr        string `yaml:"listen_addr"`
	Env               string `yaml:"env"`
	ReadTimeoutSec    int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int    `yaml:"write_timeout_sec"`
	IdleTimeoutSec    int    `yaml:"idle_timeout_sec"`
	ShutdownTimeout   int    `yaml:"shutdown_timeout_sec"`
	TLSCertFile       string `yaml:"tls_cert_file"`
	TLSKeyFile        string `yaml:"tls_key_file"`
	MaxCallsPerMinute int    `yaml:"max_calls_per_minute"`
}

// CassandraConfig describes the C3 fetch adapter's backing session.
type CassandraConfig struct {
	Hosts           []string       `yaml:"hosts"`
	Keyspace        string         `yaml:"keyspace"`
	Consistency     string         `yaml:"consistency"`
	TimeoutMs       int            `yaml:"timeout_ms"`
	MaxRetries      int            `yaml:"max_retries"`
	SatToKeyspace   map[int]string `yaml:"sat_to_keyspace"`
	IoTimerPeriodMs int            `yaml:"io_timer_period_ms"`
}

// CacheConfig describes the C2 embedded property cache.
type CacheConfig struct {
	DBPath        string `yaml:"db_path"`
	OpTimeoutMs   int    `yaml:"op_timeout_ms"`
	LockTimeoutMs int    `yaml:"lock_timeout_ms"`
}

// AuxStoreConfig describes the WGS/OSG auxiliary-store gRPC client (§4.9).
type AuxStoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ProcessorConfig sizes the shared Cassandra fetch pool (WorkerPoolSize)
// and sets the per-request timeout.
type ProcessorConfig struct {
	WorkerPoolSize  int `yaml:"worker_pool_size"`
	RequestTimeoutS int `yaml:"request_timeout_sec"`
}

// ClientConfig describes defaults for the pkg/psgclient transport (C8).
type ClientConfig struct {
	DiscoveryPeriodSec     int    `yaml:"discovery_period_sec"`
	FailWhenEmptyGraceSec  int    `yaml:"fail_when_empty_grace_sec"`
	RequestTimeoutSec      int    `yaml:"request_timeout_sec"`
	CompetitiveAfterSec    int    `yaml:"competitive_after_sec"`
	RequestRetries         int    `yaml:"request_retries"`
	RefusedStreamRetries   int    `yaml:"refused_stream_retries"`
	ThrottleNumerator      int    `yaml:"throttle_numerator"`
	ThrottleDenominator    int    `yaml:"throttle_denominator"` // capped at 128, spec.md §9
	ThrottlePeriodSec      int    `yaml:"throttle_period_sec"`
	MaxStreamsPerSession   int    `yaml:"max_streams_per_session"`
	DiscoveryCacheRedisURL string `yaml:"discovery_cache_redis_url"`
}

type MonitoringConfig struct {
	EnableLiveStream bool `yaml:"enable_live_stream"`
}

const maxThrottleDenominator = 128

// =============================================================================
// Singleton with environment overrides
// =============================================================================

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide config instance, built from CONFIG_PATH
// (default "psg.yaml") plus environment overrides.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "psg.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		cfg.applyDefaults()
		instance = cfg
	})
	return instance
}

// LoadConfig loads config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.ListenAddr = getEnv("PSG_LISTEN_ADDR", c.Server.ListenAddr)
	c.Server.Env = getEnv("PSG_ENV", c.Server.Env)
	c.Server.TLSCertFile = getEnv("PSG_TLS_CERT_FILE", c.Server.TLSCertFile)
	c.Server.TLSKeyFile = getEnv("PSG_TLS_KEY_FILE", c.Server.TLSKeyFile)

	if hosts := getEnv("PSG_CASSANDRA_HOSTS", ""); hosts != "" {
		c.Cassandra.Hosts = splitCSV(hosts)
	}
	c.Cassandra.Keyspace = getEnv("PSG_CASSANDRA_KEYSPACE", c.Cassandra.Keyspace)

	c.Cache.DBPath = getEnv("PSG_CACHE_DB_PATH", c.Cache.DBPath)

	c.AuxStore.Addr = getEnv("PSG_AUXSTORE_ADDR", c.AuxStore.Addr)
	c.AuxStore.Enabled = getEnvBool("PSG_AUXSTORE_ENABLED", c.AuxStore.Enabled)

	if v := getEnvInt("PSG_WORKER_POOL_SIZE", 0); v > 0 {
		c.Processor.WorkerPoolSize = v
	}

	if v := getEnvInt("PSG_CLIENT_REQUEST_RETRIES", -1); v >= 0 {
		c.Client.RequestRetries = v
	}
	if v := getEnvInt("PSG_CLIENT_REFUSED_STREAM_RETRIES", -1); v >= 0 {
		c.Client.RefusedStreamRetries = v
	}
	c.Client.DiscoveryCacheRedisURL = getEnv("PSG_CLIENT_DISCOVERY_REDIS_URL", c.Client.DiscoveryCacheRedisURL)

	c.Monitoring.EnableLiveStream = getEnvBool("PSG_MONITORING_LIVE_STREAM", c.Monitoring.EnableLiveStream)
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":2180"
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 30
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15
	}
	if c.Server.MaxCallsPerMinute == 0 {
		c.Server.MaxCallsPerMinute = 6000
	}

	if c.Cassandra.Consistency == "" {
		c.Cassandra.Consistency = "LOCAL_QUORUM"
	}
	if c.Cassandra.TimeoutMs == 0 {
		c.Cassandra.TimeoutMs = 2000
	}
	if c.Cassandra.MaxRetries == 0 {
		c.Cassandra.MaxRetries = 3
	}
	if c.Cassandra.IoTimerPeriodMs == 0 {
		c.Cassandra.IoTimerPeriodMs = 250
	}
	if c.Cassandra.SatToKeyspace == nil {
		c.Cassandra.SatToKeyspace = map[int]string{}
	}

	if c.Cache.OpTimeoutMs == 0 {
		c.Cache.OpTimeoutMs = 50
	}
	if c.Cache.LockTimeoutMs == 0 {
		c.Cache.LockTimeoutMs = 100
	}
	if c.Cache.DBPath == "" {
		c.Cache.DBPath = "psg_cache.db"
	}

	if c.Processor.WorkerPoolSize == 0 {
		c.Processor.WorkerPoolSize = 64
	}
	if c.Processor.RequestTimeoutS == 0 {
		c.Processor.RequestTimeoutS = 10
	}

	if c.Client.DiscoveryPeriodSec == 0 {
		c.Client.DiscoveryPeriodSec = 30
	}
	if c.Client.FailWhenEmptyGraceSec == 0 {
		c.Client.FailWhenEmptyGraceSec = 10
	}
	if c.Client.RequestTimeoutSec == 0 {
		c.Client.RequestTimeoutSec = 10
	}
	if c.Client.CompetitiveAfterSec == 0 {
		c.Client.CompetitiveAfterSec = 5
	}
	if c.Client.ThrottleNumerator == 0 {
		c.Client.ThrottleNumerator = 1
	}
	if c.Client.ThrottleDenominator == 0 {
		c.Client.ThrottleDenominator = 8
	}
	if c.Client.ThrottleDenominator > maxThrottleDenominator {
		c.Client.ThrottleDenominator = maxThrottleDenominator
	}
	if c.Client.ThrottlePeriodSec == 0 {
		c.Client.ThrottlePeriodSec = 30
	}
	if c.Client.MaxStreamsPerSession == 0 {
		c.Client.MaxStreamsPerSession = 100
	}
}

// Timeout returns the configured per-query Cassandra timeout as a Duration.
func (c CassandraConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// IoTimerPeriod returns the configured retry back-off tick as a Duration.
func (c CassandraConfig) IoTimerPeriod() time.Duration {
	return time.Duration(c.IoTimerPeriodMs) * time.Millisecond
}

// OpTimeout returns the configured cache operation bound as a Duration.
func (c CacheConfig) OpTimeout() time.Duration {
	return time.Duration(c.OpTimeoutMs) * time.Millisecond
}

// LockTimeout returns the configured bbolt file-lock wait bound.
func (c CacheConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
