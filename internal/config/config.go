// Package config reads server settings from the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/gridarena/internal/logging"
	"github.com/mcoot/gridarena/internal/model"
)

// Config holds the server settings
type Config struct {
	Addr            string
	StorageType     string // memory, redis or postgres
	RedisURL        string
	DatabaseURL     string
	SessionDuration time.Duration
	ArenaWidth      int
	ArenaHeight     int
	Log             logging.Config
}

// Default returns the settings used when no variables are set
func Default() Config {
	rules := model.DefaultRules()
	return Config{
		Addr:            ":8080",
		StorageType:     "memory",
		SessionDuration: 24 * time.Hour,
		ArenaWidth:      rules.Arena.Width,
		ArenaHeight:     rules.Arena.Height,
		Log:             logging.DefaultConfig(),
	}
}

// FromEnv reads the settings from the process environment
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}

// Load reads the settings through getenv, starting from Default
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	positive := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be a positive integer, got %q", key, v))
			return
		}
		*dst = n
	}

	str("ADDR", &cfg.Addr)
	str("STORAGE_TYPE", &cfg.StorageType)
	str("REDIS_URL", &cfg.RedisURL)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)
	positive("ARENA_WIDTH", &cfg.ArenaWidth)
	positive("ARENA_HEIGHT", &cfg.ArenaHeight)

	if v := strings.TrimSpace(getenv("SESSION_DURATION")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("SESSION_DURATION: must be a positive duration, got %q", v))
		} else {
			cfg.SessionDuration = d
		}
	}

	cfg.StorageType = strings.ToLower(cfg.StorageType)
	switch cfg.StorageType {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL required when STORAGE_TYPE=redis"))
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL required when STORAGE_TYPE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_TYPE: unknown backend %q", cfg.StorageType))
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Rules returns the game rules with the configured arena size
func (c Config) Rules() model.Rules {
	rules := model.DefaultRules()
	rules.Arena = model.Arena{Width: c.ArenaWidth, Height: c.ArenaHeight}
	return rules
}
