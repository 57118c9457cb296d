package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/qbridge/qbridge/pkg/cache"
	"github.com/qbridge/qbridge/pkg/transpile"
)

// Config is the on-disk CLI configuration, read from
// ~/.config/qbridge/config.toml (or $XDG_CONFIG_HOME/qbridge/config.toml).
// All fields are optional; zero values fall back to defaults.
type Config struct {
	// MaxPaths is the number of candidate conversion paths attempted.
	MaxPaths int `toml:"max_paths"`

	// CacheBackend selects the cache: "file" (default), "none", "memory",
	// "redis", or "mongo".
	CacheBackend string `toml:"cache_backend"`

	Redis RedisConfig `toml:"redis"`
	Mongo MongoConfig `toml:"mongo"`
}

// RedisConfig holds redis backend settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MongoConfig holds mongodb backend settings.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		MaxPaths:     transpile.DefaultMaxPaths,
		CacheBackend: "file",
	}
}

// LoadConfigOrDefault reads the config file, falling back to defaults when
// the file is missing or unreadable.
func LoadConfigOrDefault() Config {
	cfg, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// LoadConfig reads and validates the config file. A missing file yields the
// defaults without error.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	path, err := configPath()
	if err != nil {
		return cfg, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.MaxPaths < 1 {
		cfg.MaxPaths = transpile.DefaultMaxPaths
	}
	return cfg, nil
}

// OpenCache opens the configured cache backend.
func (c Config) OpenCache() (cache.Cache, error) {
	switch c.CacheBackend {
	case "", "file":
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	case "none":
		return cache.NewNullCache(), nil
	case "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return cache.NewMongoCache(ctx, cache.MongoConfig{
			URI:        c.Mongo.URI,
			Database:   c.Mongo.Database,
			Collection: c.Mongo.Collection,
		})
	}
	return nil, fmt.Errorf("unknown cache backend %q (file, none, memory, redis, mongo)", c.CacheBackend)
}

// configPath returns the config file path using XDG conventions.
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
