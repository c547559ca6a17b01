package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends
const (
	BackendMemory    = "memory"
	BackendCassandra = "cassandra"
	BackendRedis     = "redis"
	BackendSQLite    = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	Host                 string `env:"HOST" envDefault:"0.0.0.0"`
	Port                 string `env:"PORT" envDefault:"8080"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat            string `env:"LOG_FORMAT" envDefault:"json"`
	StorageBackend       string `env:"STORAGE_BACKEND" envDefault:"memory"`
	SessionTTLSeconds    int    `env:"SESSION_TTL_SECONDS" envDefault:"3600"`
	ExhibitionIntervalMs int    `env:"EXHIBITION_INTERVAL_MS" envDefault:"800"`

	Cassandra CassandraConfig `envPrefix:"CASSANDRA_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	SQLite    SQLiteConfig    `envPrefix:"SQLITE_"`
	Telemetry TelemetryConfig `envPrefix:"OTEL_"`
}

// CassandraConfig holds Cassandra-specific configuration
type CassandraConfig struct {
	Hosts          []string `env:"HOSTS" envSeparator:"," envDefault:"localhost:9042"`
	Keyspace       string   `env:"KEYSPACE" envDefault:"rps_arena"`
	Username       string   `env:"USERNAME"`
	Password       string   `env:"PASSWORD"`
	Consistency    string   `env:"CONSISTENCY" envDefault:"QUORUM"`
	TimeoutSeconds int      `env:"TIMEOUT_SECONDS" envDefault:"5"`
}

// Timeout returns the query timeout
func (c CassandraConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// SQLiteConfig holds the SQLite database location
type SQLiteConfig struct {
	Path string `env:"PATH" envDefault:"./data/rps.db"`
}

// TelemetryConfig controls the OTLP metrics exporter
type TelemetryConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Endpoint string `env:"EXPORTER_OTLP_ENDPOINT"`
	Insecure bool   `env:"INSECURE" envDefault:"true"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	switch c.StorageBackend {
	case BackendMemory, BackendCassandra, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.SessionTTLSeconds < 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be >= 0")
	}
	if c.ExhibitionIntervalMs <= 0 {
		return fmt.Errorf("EXHIBITION_INTERVAL_MS must be > 0")
	}

	if c.StorageBackend == BackendCassandra {
		if len(c.Cassandra.Hosts) == 0 {
			return fmt.Errorf("CASSANDRA_HOSTS cannot be empty")
		}
		if c.Cassandra.TimeoutSeconds <= 0 {
			return fmt.Errorf("CASSANDRA_TIMEOUT_SECONDS must be > 0")
		}
	}
	if c.StorageBackend == BackendSQLite && c.SQLite.Path == "" {
		return fmt.Errorf("SQLITE_PATH cannot be empty")
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED=true")
	}

	return nil
}

// Address returns the full address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// SessionTTL returns how long idle sessions are kept by expiring backends (0 = forever)
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// ExhibitionInterval returns the default cadence of automated rounds
func (c *Config) ExhibitionInterval() time.Duration {
	return time.Duration(c.ExhibitionIntervalMs) * time.Millisecond
}
