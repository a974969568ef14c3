// Package config loads application settings from the environment.
//
// Variables use the PUZZLEMARKET_ prefix. The first underscore after the
// prefix separates the section from the key, so
//
//	PUZZLEMARKET_DATABASE_DSN           -> database.dsn
//	PUZZLEMARKET_SERVER_READ_TIMEOUT    -> server.read_timeout
//	PUZZLEMARKET_ENV                    -> env
//
// A .env file in the working directory is loaded first if present. Every
// setting except the JWT secret has a default; the result is validated
// before it is returned, so a bad deployment fails at startup.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload" // loads .env into the process environment
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const Prefix = "PUZZLEMARKET_"

type Config struct {
	Env      string         `koanf:"env" validate:"required,oneof=local development staging production"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Listing  ListingConfig  `koanf:"listing"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the driver. "sqlite" takes a file path or
// ":memory:" as DSN; "pgx" takes a PostgreSQL URL. Pool settings only apply
// to PostgreSQL.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver" validate:"required,oneof=sqlite pgx postgres"`
	DSN             string        `koanf:"dsn" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
}

type AuthConfig struct {
	JWTSecret      string        `koanf:"jwt_secret" validate:"required,min=16"`
	TokenTTL       time.Duration `koanf:"token_ttl" validate:"gt=0"`
	PasswordScheme string        `koanf:"password_scheme" validate:"oneof=sha256 bcrypt"`
	BcryptCost     int           `koanf:"bcrypt_cost" validate:"omitempty,min=4,max=31"`
	CookieSecure   bool          `koanf:"cookie_secure"`
}

// ListingConfig controls advert paging and how read failures surface.
// With MaskReadErrors set, a failing listing, owner listing, limits query
// or single-advert read is logged and answered with an empty result instead
// of an error.
type ListingConfig struct {
	DefaultLimit   int  `koanf:"default_limit" validate:"gt=0"`
	MaxLimit       int  `koanf:"max_limit" validate:"gtefield=DefaultLimit"`
	MaskReadErrors bool `koanf:"mask_read_errors"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

// Default returns the settings used for anything the environment leaves out.
func Default() *Config {
	return &Config{
		Env: "local",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "data/puzzlemarket.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL:       24 * time.Hour,
			PasswordScheme: "sha256",
			BcryptCost:     12,
		},
		Listing: ListingConfig{
			DefaultLimit: 100,
			MaxLimit:     500,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the environment on top of Default and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider(Prefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps PUZZLEMARKET_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, Prefix))
	return strings.Replace(key, "_", ".", 1)
}

// IsLocal reports whether the app runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "development"
}

// SlogLevel converts Log.Level for slog.HandlerOptions.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
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

// JSON reports whether logs should be JSON. Without an explicit format,
// local environments get text and everything else JSON.
func (c *Config) JSON() bool {
	if c.Log.Format != "" {
		return c.Log.Format == "json"
	}
	return !c.IsLocal()
}
