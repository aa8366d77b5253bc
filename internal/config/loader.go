package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "CONFTIX_"
	envConfigFile = envPrefix + "CONFIG"
	envDotenvFile = envPrefix + "DOTENV"
	defaultDotenv = ".env"
)

// Load builds a Config by layering defaults, optional file, .env and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. YAML file if CONFTIX_CONFIG is set
//  3. .env file (CONFTIX_DOTENV or ./.env); never overrides real env vars
//  4. env (prefix CONFTIX_)
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	if err := loadDotenv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// CONFTIX_API_URL -> api_url; underscores are kept to match koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotenv() error {
	path := os.Getenv(envDotenvFile)
	explicit := path != ""
	if !explicit {
		path = defaultDotenv
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Validate checks settings the whole process depends on.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.AvatarMaxWidth <= 0:
		return fmt.Errorf("%w: avatar_max_width must be positive", ErrInvalidConfig)
	case c.AvatarMaxBytes <= 0:
		return fmt.Errorf("%w: avatar_max_bytes must be positive", ErrInvalidConfig)
	case c.AvatarQuality < 1 || c.AvatarQuality > 100:
		return fmt.Errorf("%w: avatar_quality must be within 1..100", ErrInvalidConfig)
	case c.SuggestionLimit <= 0:
		return fmt.Errorf("%w: suggestion_limit must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.StorageDriver) {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.StorageDriver)
	}
	return nil
}
