package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// HTTPConfig holds the listener settings.
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// StoreConfig selects and configures the items table backend.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// SQLitePath is the database file; ":memory:" keeps everything in RAM.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// PostgresDSN is a libpq-style connection string.
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

// RedisConfig configures the optional view cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// ResolverConfig tunes child fan-out.
type ResolverConfig struct {
	// FanoutLimit caps concurrent child lookups per parent level.
	FanoutLimit int `mapstructure:"fanout_limit" yaml:"fanout_limit"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
}

// envPrefix namespaces environment overrides, e.g. TASKAPI_STORE_DRIVER.
const envPrefix = "TASKAPI"

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskapi/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskapi", "config.yaml")
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Driver:     DriverSQLite,
			SQLitePath: "tasks.db",
		},
		Redis: RedisConfig{
			TTL: 60 * time.Second,
		},
		Resolver: ResolverConfig{
			FanoutLimit: 16,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", d.HTTP.IdleTimeout)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.sqlite_path", d.Store.SQLitePath)
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", d.Redis.TTL)
	v.SetDefault("resolver.fanout_limit", d.Resolver.FanoutLimit)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults. TASKAPI_* environment variables
// override both.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings that cannot fall back to a default.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Resolver.FanoutLimit < 1 {
		c.Resolver.FanoutLimit = 1
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("http", map[string]any{
		"addr":          cfg.HTTP.Addr,
		"read_timeout":  cfg.HTTP.ReadTimeout.String(),
		"write_timeout": cfg.HTTP.WriteTimeout.String(),
		"idle_timeout":  cfg.HTTP.IdleTimeout.String(),
	})
	v.Set("store", map[string]any{
		"driver":       cfg.Store.Driver,
		"sqlite_path":  cfg.Store.SQLitePath,
		"postgres_dsn": cfg.Store.PostgresDSN,
	})
	v.Set("redis", map[string]any{
		"addr":     cfg.Redis.Addr,
		"password": cfg.Redis.Password,
		"db":       cfg.Redis.DB,
		"ttl":      cfg.Redis.TTL.String(),
	})
	v.Set("resolver", map[string]any{
		"fanout_limit": cfg.Resolver.FanoutLimit,
	})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// DefaultAppConfig returns the built-in configuration.
func DefaultAppConfig() *AppConfig {
	return defaultAppConfig()
}
