// Package config resolves where and how records are stored.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/stevemurr/persistent-data-store/store"
)

// StoreDirName is the directory under the data root that holds records.
const StoreDirName = "PersistentData"

const appName = "persistent-data-store"

type Config struct {
	// DataRoot is the host's persistent data directory for this app.
	DataRoot string      `yaml:"data_root"`
	Backend  string      `yaml:"backend"`
	LogLevel string      `yaml:"log_level"`
	Redis    RedisConfig `yaml:"redis"`
	Server   Server      `yaml:"server"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Server struct {
	Host           string   `yaml:"host"`
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		DataRoot: defaultDataRoot(),
		Backend:  "json",
		LogLevel: "info",
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Server: Server{
			Host:           "0.0.0.0",
			Port:           "8080",
			AllowedOrigins: []string{"*"},
		},
	}
}

func defaultDataRoot() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return "./data"
}

// Load reads the YAML file at path on top of Default, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	env := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	env("PDSTORE_DATA_ROOT", &c.DataRoot)
	env("PDSTORE_BACKEND", &c.Backend)
	env("PDSTORE_LOG_LEVEL", &c.LogLevel)
	env("PDSTORE_REDIS_ADDR", &c.Redis.Addr)
	env("PDSTORE_REDIS_PASSWORD", &c.Redis.Password)
	env("HOST", &c.Server.Host)
	env("PORT", &c.Server.Port)

	if v := getenv("PDSTORE_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PDSTORE_REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

func (c Config) Validate() error {
	if c.DataRoot == "" {
		return errors.New("config: data_root is empty")
	}
	switch c.Backend {
	case "", "json", "sqlite", "pebble", "redis", "memory":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	if c.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("config: redis backend needs redis.addr")
	}
	return nil
}

// StoreRoot is the directory records live in.
func (c Config) StoreRoot() string {
	return filepath.Join(c.DataRoot, StoreDirName)
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// OpenBackend builds the configured backend rooted at StoreRoot.
func (c Config) OpenBackend() (store.Backend, error) {
	return store.New(c.Backend, c.StoreRoot(), store.RedisConfig{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Prefix:   c.Redis.Prefix,
	})
}
