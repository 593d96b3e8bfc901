// Package config loads the server configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// StoreMode selects the durable store backing the services.
const (
	StoreModeMySQL  = "mysql"
	StoreModeRemote = "remote"
	StoreModeMemory = "memory"
)

// Config holds the server settings.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	// StoreMode is one of mysql, remote, or memory.
	StoreMode string `yaml:"store_mode"`
	MySQLDSN  string `yaml:"mysql_dsn"`
	StoreURL  string `yaml:"store_url"`

	// RedisAddr enables the Redis quantity guard when non-empty.
	RedisAddr string `yaml:"redis_addr"`

	WorkerCount int `yaml:"worker_count"`
	QueueSize   int `yaml:"queue_size"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		HTTPAddr:    ":8080",
		StoreMode:   StoreModeMySQL,
		MySQLDSN:    "root:root@tcp(localhost:3306)/inventory?parseTime=true",
		StoreURL:    "http://localhost:8080",
		RedisAddr:   "localhost:6379",
		WorkerCount: 10,
		QueueSize:   10000,
	}
}

// Load reads the YAML file at path when path is non-empty, then applies
// environment variable overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("STORE_MODE"); v != "" {
		cfg.StoreMode = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.MySQLDSN = v
	}
	if v := os.Getenv("STORE_URL"); v != "" {
		cfg.StoreURL = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerCount = n
		}
	}
	if v := os.Getenv("QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueSize = n
		}
	}
}

func (c Config) validate() error {
	switch c.StoreMode {
	case StoreModeMySQL, StoreModeRemote, StoreModeMemory:
	default:
		return fmt.Errorf("unknown store_mode %q", c.StoreMode)
	}
	if c.StoreMode == StoreModeMySQL && c.MySQLDSN == "" {
		return fmt.Errorf("mysql_dsn is required for store_mode mysql")
	}
	if c.StoreMode == StoreModeRemote && c.StoreURL == "" {
		return fmt.Errorf("store_url is required for store_mode remote")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker_count must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive")
	}
	return nil
}
