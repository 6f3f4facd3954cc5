// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	BindAddr       string
	Port           string
	DBPath         string
	RollupInterval time.Duration
	Location       *time.Location
	CategoriesFile string // optional YAML seed applied on first start
	AllowedOrigins []string
	LogLevel       slog.Level
	Shutdown       ShutdownConfig
}

// ShutdownConfig bounds the graceful shutdown sequence.
type ShutdownConfig struct {
	HTTPTimeout     time.Duration
	CloseOutTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	loc, err := loadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		BindAddr:       getEnv("BIND_ADDR", "127.0.0.1"),
		Port:           getEnv("PORT", "7411"),
		DBPath:         getEnv("DB_PATH", "./data/sitetime.db"),
		RollupInterval: getEnvDuration("ROLLUP_INTERVAL", 24*time.Hour),
		Location:       loc,
		CategoriesFile: getEnv("CATEGORIES_FILE", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		LogLevel:       level,
		Shutdown: ShutdownConfig{
			HTTPTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			CloseOutTimeout: 5 * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port, got %q", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.RollupInterval <= 0 {
		return fmt.Errorf("ROLLUP_INTERVAL must be > 0")
	}
	if c.Location == nil {
		return fmt.Errorf("TIMEZONE cannot be empty")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS cannot be empty")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// IsLoopback returns true if the daemon only listens on loopback.
func (c *Config) IsLoopback() bool {
	return c.BindAddr == "127.0.0.1" || c.BindAddr == "localhost" || c.BindAddr == "::1"
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
