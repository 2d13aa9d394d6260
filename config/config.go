// Package config loads duesctl application configuration from defaults, an
// optional YAML file and DUES_* environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/internal/validation"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
)

// Config is the complete application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Engine  EngineConfig  `yaml:"engine"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
	Members MembersConfig `yaml:"members"`

	// Fee seeds the stored fee configuration when none exists yet.
	Fee *fee.Overrides `yaml:"fee,omitempty"`
}

// StoreConfig selects and addresses the storage backend.
type StoreConfig struct {
	Driver   string `yaml:"driver" validate:"oneof=memory sqlite postgres mongo redis"`
	DSN      string `yaml:"dsn" validate:"required_unless=Driver memory"`
	Database string `yaml:"database" validate:"required_if=Driver mongo"`
	Prefix   string `yaml:"prefix"`
}

// EngineConfig tunes the dues engine.
type EngineConfig struct {
	Workers       int    `yaml:"workers" validate:"min=1,max=256"`
	RetryAttempts uint   `yaml:"retry_attempts" validate:"min=1,max=100"`
	Timezone      string `yaml:"timezone" validate:"required,timezone"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MembersConfig points at the member directory file.
type MembersConfig struct {
	File string `yaml:"file" validate:"required"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "dues.db",
		},
		Engine: EngineConfig{
			Workers:       8,
			RetryAttempts: 5,
			Timezone:      "UTC",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Members: MembersConfig{
			File: "members.yaml",
		},
	}
}

// Load builds the configuration. An empty path skips the file; DUES_CONFIG
// names one when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DUES_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Store.Driver = getenvDefault("DUES_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = getenvDefault("DUES_STORE_DSN", cfg.Store.DSN)
	cfg.Store.Database = getenvDefault("DUES_STORE_DATABASE", cfg.Store.Database)
	cfg.HTTP.Addr = getenvDefault("DUES_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Logging.Level = strings.ToLower(getenvDefault("DUES_LOG_LEVEL", cfg.Logging.Level))
	cfg.Members.File = getenvDefault("DUES_MEMBERS_FILE", cfg.Members.File)
	cfg.Engine.Timezone = getenvDefault("DUES_TIMEZONE", cfg.Engine.Timezone)
	cfg.Engine.Workers = getenvIntDefault("DUES_WORKERS", cfg.Engine.Workers)
}

// Validate checks struct constraints.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		fields := validation.Fields(err)
		if fields == nil {
			return fmt.Errorf("config: %w", err)
		}
		msgs := make([]string, 0, len(fields))
		for k, v := range fields {
			msgs = append(msgs, k+": "+v)
		}
		slices.Sort(msgs)
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

// ErrInvalid is returned when the loaded configuration fails validation.
var ErrInvalid = errors.New("config: invalid")

// Location loads the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Engine.Timezone)
}

// Level returns the slog level for Logging.Level.
func (c Config) Level() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a slog logger writing to w per Logging.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
