package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the arbitrage core.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Redis         RedisConfig         `yaml:"redis"`
	Observability ObservabilityConfig `yaml:"observability"`
	Arbitrage     ArbitrageConfig     `yaml:"arbitrage"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig backs the key-value side channel: one GET per (venue,
// symbol) at key pattern {venue}:linear:tickers:{symbol}, used by the
// spread-debugger path only, never the hot trading path.
type RedisConfig struct {
	URL             string        `yaml:"url"`
	Password        string        `yaml:"password"`
	DB              int           `yaml:"db"`
	PoolSize        int           `yaml:"pool_size"`
	MinIdleConns    int           `yaml:"min_idle_conns"`
	PoolTimeout     time.Duration `yaml:"pool_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	MinRetryBackoff time.Duration `yaml:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `yaml:"max_retry_backoff"`
	EnableMetrics   bool          `yaml:"enable_metrics"`
}

type ObservabilityConfig struct {
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
	ServiceName    string `yaml:"service_name"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	MetricsPort    int    `yaml:"metrics_port"`
}

// ArbitrageConfig holds the detector/pipeline/execution tunables:
// thresholds, capacities, deadlines.
type ArbitrageConfig struct {
	MaxSymbols               int           `yaml:"max_symbols"`
	PipelineCapacity         int           `yaml:"pipeline_capacity"`
	OpportunityQueueCapacity int           `yaml:"opportunity_queue_capacity"`
	MinSpreadBps             float64       `yaml:"min_spread_bps"`
	MinConfidenceScore       int           `yaml:"min_confidence_score"`
	QuoteStaleness           time.Duration `yaml:"quote_staleness"`
	OpportunityMaxAge        time.Duration `yaml:"opportunity_max_age"`
	FillPollDeadline         time.Duration `yaml:"fill_poll_deadline"`
	FillPollInterval         time.Duration `yaml:"fill_poll_interval"`
	SingleExchangeMode       bool          `yaml:"single_exchange_mode"`
	PrimaryExchange          string        `yaml:"primary_exchange"`
}

// defaultConfig returns the baseline configuration before any YAML
// overlay or environment override is applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			Host:         "0.0.0.0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			URL:             "redis://localhost:6379",
			DB:              0,
			PoolSize:        10,
			MinIdleConns:    2,
			PoolTimeout:     4 * time.Second,
			IdleTimeout:     5 * time.Minute,
			MaxRetries:      3,
			MinRetryBackoff: 8 * time.Millisecond,
			MaxRetryBackoff: 512 * time.Millisecond,
			EnableMetrics:   true,
		},
		Observability: ObservabilityConfig{
			JaegerEndpoint: "http://localhost:14268/api/traces",
			ServiceName:    "arbitrage-core",
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsPort:    9090,
		},
		Arbitrage: ArbitrageConfig{
			MaxSymbols:               256,
			PipelineCapacity:         4096,
			OpportunityQueueCapacity: 256,
			MinSpreadBps:             1.0,
			MinConfidenceScore:       60,
			QuoteStaleness:           2 * time.Second,
			OpportunityMaxAge:        5 * time.Second,
			FillPollDeadline:         300 * time.Millisecond,
			FillPollInterval:         10 * time.Millisecond,
			SingleExchangeMode:       false,
			PrimaryExchange:          "bybit",
		},
	}
}

// Load builds configuration in three layers, lowest to highest
// precedence: built-in defaults, an optional YAML file named by
// CONFIG_FILE, then environment variables. The YAML layer exists for
// operators who prefer a checked-in config over a wall of env vars;
// nothing in the hot path reads it directly.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAMLOverlay(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func loadYAMLOverlay(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.ReadTimeout = getDurationEnv("READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getDurationEnv("WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getDurationEnv("IDLE_TIMEOUT", cfg.Server.IdleTimeout)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getIntEnv("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PoolSize = getIntEnv("REDIS_POOL_SIZE", cfg.Redis.PoolSize)
	cfg.Redis.MinIdleConns = getIntEnv("REDIS_MIN_IDLE_CONNS", cfg.Redis.MinIdleConns)
	cfg.Redis.PoolTimeout = getDurationEnv("REDIS_POOL_TIMEOUT", cfg.Redis.PoolTimeout)
	cfg.Redis.IdleTimeout = getDurationEnv("REDIS_IDLE_TIMEOUT", cfg.Redis.IdleTimeout)
	cfg.Redis.MaxRetries = getIntEnv("REDIS_MAX_RETRIES", cfg.Redis.MaxRetries)
	cfg.Redis.MinRetryBackoff = getDurationEnv("REDIS_MIN_RETRY_BACKOFF", cfg.Redis.MinRetryBackoff)
	cfg.Redis.MaxRetryBackoff = getDurationEnv("REDIS_MAX_RETRY_BACKOFF", cfg.Redis.MaxRetryBackoff)
	cfg.Redis.EnableMetrics = getBoolEnv("REDIS_ENABLE_METRICS", cfg.Redis.EnableMetrics)

	cfg.Observability.JaegerEndpoint = getEnv("JAEGER_ENDPOINT", cfg.Observability.JaegerEndpoint)
	cfg.Observability.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.Observability.ServiceName)
	cfg.Observability.LogLevel = getEnv("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = getEnv("LOG_FORMAT", cfg.Observability.LogFormat)
	cfg.Observability.MetricsPort = getIntEnv("METRICS_PORT", cfg.Observability.MetricsPort)

	cfg.Arbitrage.MaxSymbols = getIntEnv("ARB_MAX_SYMBOLS", cfg.Arbitrage.MaxSymbols)
	cfg.Arbitrage.PipelineCapacity = getIntEnv("ARB_PIPELINE_CAPACITY", cfg.Arbitrage.PipelineCapacity)
	cfg.Arbitrage.OpportunityQueueCapacity = getIntEnv("ARB_OPPORTUNITY_QUEUE_CAPACITY", cfg.Arbitrage.OpportunityQueueCapacity)
	cfg.Arbitrage.MinSpreadBps = getFloatEnv("ARB_MIN_SPREAD_BPS", cfg.Arbitrage.MinSpreadBps)
	cfg.Arbitrage.MinConfidenceScore = getIntEnv("ARB_MIN_CONFIDENCE_SCORE", cfg.Arbitrage.MinConfidenceScore)
	cfg.Arbitrage.QuoteStaleness = getDurationEnv("ARB_QUOTE_STALENESS", cfg.Arbitrage.QuoteStaleness)
	cfg.Arbitrage.OpportunityMaxAge = getDurationEnv("ARB_OPPORTUNITY_MAX_AGE", cfg.Arbitrage.OpportunityMaxAge)
	cfg.Arbitrage.FillPollDeadline = getDurationEnv("ARB_FILL_POLL_DEADLINE", cfg.Arbitrage.FillPollDeadline)
	cfg.Arbitrage.FillPollInterval = getDurationEnv("ARB_FILL_POLL_INTERVAL", cfg.Arbitrage.FillPollInterval)
	cfg.Arbitrage.SingleExchangeMode = getBoolEnv("ARB_SINGLE_EXCHANGE_MODE", cfg.Arbitrage.SingleExchangeMode)
	cfg.Arbitrage.PrimaryExchange = getEnv("ARB_PRIMARY_EXCHANGE", cfg.Arbitrage.PrimaryExchange)
}

func (c *Config) validate() error {
	if c.Arbitrage.SingleExchangeMode && c.Arbitrage.PrimaryExchange == "" {
		return fmt.Errorf("ARB_PRIMARY_EXCHANGE is required when ARB_SINGLE_EXCHANGE_MODE is enabled")
	}
	if c.Arbitrage.MaxSymbols <= 0 {
		return fmt.Errorf("ARB_MAX_SYMBOLS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
