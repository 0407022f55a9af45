// Package config loads rcache settings from YAML and RCACHE_* variables.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// RedisConfig holds connection settings. URL wins over Addr when both are
// set. A nil DB keeps the database named by the URL (0 for Addr).
type RedisConfig struct {
	URL          string        `yaml:"url,omitempty"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username,omitempty"`
	Password     string        `yaml:"password,omitempty"`
	DB           *int          `yaml:"db,omitempty"`
	TLS          bool          `yaml:"tls,omitempty"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size,omitempty"`
	MaxRetries   int           `yaml:"max_retries,omitempty"`
}

// CacheConfig holds value encoding and enumeration settings.
type CacheConfig struct {
	Codec         string `yaml:"codec"` // msgpack, json or cbor
	ScanCount     int64  `yaml:"scan_count"`
	MaxValueBytes int    `yaml:"max_value_bytes,omitempty"` // 0 = unlimited
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Redis RedisConfig `yaml:"redis"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

// Codecs lists the accepted values of Cache.Codec.
var Codecs = []string{"msgpack", "json", "cbor"}

// DefaultConfig returns a Config for a local Redis.
func DefaultConfig() *Config {
	return &Config{
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Cache: CacheConfig{
			Codec:     "msgpack",
			ScanCount: 256,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// LoadFromFile reads a YAML file over the defaults. Keys absent from the
// file keep their default value.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("RCACHE_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("RCACHE_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RCACHE_USERNAME"); v != "" {
		cfg.Redis.Username = v
	}
	if v := os.Getenv("RCACHE_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RCACHE_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RCACHE_DB: %w", err)
		}
		cfg.Redis.DB = &db
	}
	if v := os.Getenv("RCACHE_TLS"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RCACHE_TLS: %w", err)
		}
		cfg.Redis.TLS = on
	}
	if v := os.Getenv("RCACHE_CODEC"); v != "" {
		cfg.Cache.Codec = v
	}
	if v := os.Getenv("RCACHE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate reports the first setting rcache cannot work with.
func (c *Config) Validate() error {
	if c.Redis.URL == "" && c.Redis.Addr == "" {
		return errors.New("redis: url or addr is required")
	}
	if c.Redis.DB != nil && *c.Redis.DB < 0 {
		return fmt.Errorf("redis: invalid db %d", *c.Redis.DB)
	}
	if c.Cache.MaxValueBytes < 0 {
		return fmt.Errorf("cache: invalid max_value_bytes %d", c.Cache.MaxValueBytes)
	}
	if c.Cache.ScanCount < 0 {
		return fmt.Errorf("cache: invalid scan_count %d", c.Cache.ScanCount)
	}
	for _, name := range Codecs {
		if c.Cache.Codec == name {
			return nil
		}
	}
	return fmt.Errorf("cache: unknown codec %q", c.Cache.Codec)
}

// TLSConfig returns the client TLS settings, or nil when TLS is off. A
// rediss:// URL turns TLS on by itself.
func (r RedisConfig) TLSConfig() *tls.Config {
	if !r.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}
