// Package config resolves service settings from defaults, an optional YAML
// file and TAIGA_METRICS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/platform/database"
	"taiga-metrics-service/internal/platform/logger"
)

const (
	EnvPrefix        = "TAIGA_METRICS"
	DefaultFileName  = "taiga-metrics"
	DefaultSQLiteDSN = "taiga-metrics.db"
)

var ErrMissingDSN = errors.New("database.dsn is required")

// RawConfig is what viper unmarshals into before validation.
type RawConfig struct {
	HTTP struct {
		Addr            string `mapstructure:"addr"`
		ShutdownTimeout string `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`
	Database struct {
		DSN             string `mapstructure:"dsn"`
		MaxOpenConns    int    `mapstructure:"max_open_conns"`
		MaxIdleConns    int    `mapstructure:"max_idle_conns"`
		ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	} `mapstructure:"database"`
	Snapshots struct {
		Backend    string `mapstructure:"backend"`
		DSN        string `mapstructure:"dsn"`
		TTLMinutes int    `mapstructure:"ttl_minutes"`
	} `mapstructure:"snapshots"`
	Metrics struct {
		DefaultProvider string `mapstructure:"default_provider"`
	} `mapstructure:"metrics"`
	Log struct {
		Level string `mapstructure:"level"`
		Env   string `mapstructure:"env"`
	} `mapstructure:"log"`
	Telemetry struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
		OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	} `mapstructure:"telemetry"`
}

// Config is the validated configuration.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	DatabaseDSN string
	Pool        database.PoolConfig

	SnapshotBackend database.Backend
	SnapshotDSN     string
	TTLMinutes      int

	DefaultProvider string

	LogLevel slog.Level
	LogEnv   string

	OTLPEndpoint string
	OTLPInsecure bool
}

// SetDefaults registers every key so env variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("snapshots.backend", string(database.Postgres))
	v.SetDefault("snapshots.dsn", "")
	v.SetDefault("snapshots.ttl_minutes", 60)
	v.SetDefault("metrics.default_provider", domain.ProviderInternal)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", false)
}

// New returns a viper instance wired for env lookup. When file is empty
// taiga-metrics.yaml is searched in . and $HOME.
func New(file string) *viper.Viper {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the config file if present, then unmarshals and validates.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var raw RawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return raw.Validate()
}

func (r RawConfig) Validate() (*Config, error) {
	cfg := &Config{
		HTTPAddr:     r.HTTP.Addr,
		DatabaseDSN:  strings.TrimSpace(r.Database.DSN),
		LogEnv:       r.Log.Env,
		OTLPEndpoint: r.Telemetry.OTLPEndpoint,
		OTLPInsecure: r.Telemetry.OTLPInsecure,
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	var err error
	if cfg.ShutdownTimeout, err = parseDuration("http.shutdown_timeout", r.HTTP.ShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	lifetime, err := parseDuration("database.conn_max_lifetime", r.Database.ConnMaxLifetime)
	if err != nil {
		return nil, err
	}
	if r.Database.MaxOpenConns < 0 || r.Database.MaxIdleConns < 0 {
		return nil, errors.New("database pool sizes must not be negative")
	}
	cfg.Pool = database.PoolConfig{
		MaxOpenConns:    r.Database.MaxOpenConns,
		MaxIdleConns:    r.Database.MaxIdleConns,
		ConnMaxLifetime: lifetime,
	}

	if cfg.SnapshotBackend, err = database.ParseBackend(r.Snapshots.Backend); err != nil {
		return nil, err
	}
	cfg.SnapshotDSN = strings.TrimSpace(r.Snapshots.DSN)
	if cfg.SnapshotDSN == "" {
		switch cfg.SnapshotBackend {
		case database.Postgres:
			cfg.SnapshotDSN = cfg.DatabaseDSN
		case database.SQLite:
			cfg.SnapshotDSN = DefaultSQLiteDSN
		case database.MySQL:
			return nil, errors.New("snapshots.dsn is required for the mysql backend")
		}
	}

	cfg.TTLMinutes = r.Snapshots.TTLMinutes
	if cfg.TTLMinutes < 1 {
		cfg.TTLMinutes = 1
	}

	cfg.DefaultProvider = domain.NormalizeProvider(r.Metrics.DefaultProvider)
	if cfg.DefaultProvider == "" {
		return nil, fmt.Errorf("metrics.default_provider must be internal or external, got %q", r.Metrics.DefaultProvider)
	}

	if cfg.LogLevel, err = logger.ParseLevel(r.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequireDatabase reports ErrMissingDSN when no taiga DSN is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseDSN == "" {
		return ErrMissingDSN
	}
	return nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
