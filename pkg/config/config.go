package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Stats
		CORS
		Global
	}

	HTTP struct {
		Host string
		Port int
	}
	Database struct {
		URL             string
		ConnectAttempts int
		ConnectDelay    time.Duration
		LogSQL          bool
	}
	Stats struct {
		Interval time.Duration
	}
	CORS struct {
		Origins []string
	}
	Global struct {
		ShutdownTimeout time.Duration
	}
)

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:80",
	"http://localhost:8080",
}

func (h HTTP) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// NewConfig reads the process environment, falling back to an optional .env
// file in the working directory.
func NewConfig() (*Config, error) {
	return Load(".env")
}

// Load is NewConfig with an explicit dotenv path. A missing file is not an error.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8000)
	v.SetDefault("DB_CONNECT_ATTEMPTS", 20)
	v.SetDefault("DB_CONNECT_DELAY", "10s")
	v.SetDefault("LOG_SQL", false)
	v.SetDefault("STATS_INTERVAL", "1s")
	v.SetDefault("CORS_ORIGINS", strings.Join(defaultOrigins, ","))
	v.SetDefault("SHUTDOWN_TIMEOUT", "5s")

	cfg := &Config{
		HTTP: HTTP{
			Host: v.GetString("HOST"),
			Port: v.GetInt("PORT"),
		},
		Database: Database{
			URL:             v.GetString("DATABASE_URL"),
			ConnectAttempts: v.GetInt("DB_CONNECT_ATTEMPTS"),
			ConnectDelay:    v.GetDuration("DB_CONNECT_DELAY"),
			LogSQL:          v.GetBool("LOG_SQL"),
		},
		Stats: Stats{
			Interval: v.GetDuration("STATS_INTERVAL"),
		},
		CORS: CORS{
			Origins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Global: Global{
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.Database.ConnectAttempts < 1 {
		return fmt.Errorf("DB_CONNECT_ATTEMPTS must be at least 1, got %d", c.Database.ConnectAttempts)
	}
	if c.Stats.Interval <= 0 {
		return fmt.Errorf("STATS_INTERVAL must be positive, got %s", c.Stats.Interval)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
