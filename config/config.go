// Package config loads the gateway configuration from an optional YAML file
// with environment variable overrides. A .env file is honored when present.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied before file and environment overrides.
const (
	DefaultAddr        = ":8080"
	DefaultDBDriver    = "sqlite"
	DefaultDBDSN       = "modelmux.db"
	DefaultTaskWorkers = 16
	DefaultTaskTimeout = 30 * time.Second
	DefaultMemoryTTL   = 0 // keep history until explicitly cleared
	DefaultConfigFile  = "config.yaml"
	DefaultLogLevel    = "info"
)

// Config is the full gateway configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	// Redis backs conversation memory when an address is set; otherwise an
	// in-process store is used.
	Redis struct {
		Addr      string        `yaml:"addr"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		MemoryTTL time.Duration `yaml:"memory_ttl"`
	} `yaml:"redis"`

	// Mongo backs usage logs when a URI is set; otherwise they go to the SQL
	// database.
	Mongo struct {
		URI           string `yaml:"uri"`
		Database      string `yaml:"database"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"mongo"`

	Secrets struct {
		CurrentKeyID string `yaml:"current_key_id"`
		// Keys maps key id to a base64-encoded 32-byte AES key.
		Keys map[string]string `yaml:"keys"`
	} `yaml:"secrets"`

	Tasks struct {
		Workers int           `yaml:"workers"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"tasks"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads the configuration. The path may be empty, in which case
// config.yaml is used if it exists. Environment variables override file
// values.
func Load(path string) (*Config, error) {
	// Not an error when absent.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Server.Addr = DefaultAddr
	cfg.Database.Driver = DefaultDBDriver
	cfg.Database.DSN = DefaultDBDSN
	cfg.Tasks.Workers = DefaultTaskWorkers
	cfg.Tasks.Timeout = DefaultTaskTimeout
	cfg.Redis.MemoryTTL = DefaultMemoryTTL
	cfg.Log.Level = DefaultLogLevel

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "MODELMUX_ADDR")
	setString(&cfg.Database.Driver, "MODELMUX_DB_DRIVER")
	setString(&cfg.Database.DSN, "MODELMUX_DB_DSN")
	setString(&cfg.Redis.Addr, "MODELMUX_REDIS_ADDR")
	setString(&cfg.Redis.Password, "MODELMUX_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MODELMUX_REDIS_DB")
	setString(&cfg.Mongo.URI, "MODELMUX_MONGO_URI")
	setString(&cfg.Mongo.Database, "MODELMUX_MONGO_DATABASE")
	setInt(&cfg.Mongo.RetentionDays, "MODELMUX_MONGO_RETENTION_DAYS")
	setString(&cfg.Log.Level, "MODELMUX_LOG_LEVEL")
	setInt(&cfg.Tasks.Workers, "MODELMUX_TASK_WORKERS")

	// Single-key shortcut: MODELMUX_SECRET_KEY holds the base64 key for key
	// id "default".
	if v := os.Getenv("MODELMUX_SECRET_KEY"); v != "" {
		if cfg.Secrets.Keys == nil {
			cfg.Secrets.Keys = make(map[string]string)
		}
		cfg.Secrets.CurrentKeyID = "default"
		cfg.Secrets.Keys["default"] = v
	}
}

func validate(cfg *Config) error {
	if len(cfg.Secrets.Keys) == 0 {
		return fmt.Errorf("config: at least one secrets key is required")
	}
	if cfg.Secrets.CurrentKeyID == "" {
		return fmt.Errorf("config: secrets.current_key_id is required")
	}
	if _, ok := cfg.Secrets.Keys[cfg.Secrets.CurrentKeyID]; !ok {
		return fmt.Errorf("config: current key id %q not present in secrets.keys", cfg.Secrets.CurrentKeyID)
	}
	return nil
}

// DecodeKeys returns the keyring material with keys base64-decoded.
func (c *Config) DecodeKeys() (map[string][]byte, error) {
	keys := make(map[string][]byte, len(c.Secrets.Keys))
	for id, encoded := range c.Secrets.Keys {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode secrets key %q: %w", id, err)
		}
		keys[id] = raw
	}
	return keys, nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
