// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the configuration of the exchange daemon
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrNoListenAddress    = errors.New("no listen address configured")
	ErrInvalidConnManager = errors.New("connection manager low water mark must not exceed high water mark")
	ErrInvalidRateLimit   = errors.New("rate limit burst must be positive when a rate is set")
	ErrInvalidTTL         = errors.New("transaction TTL must not be negative")
)

type Config struct {
	Identity       string            `yaml:"identity"`
	Listen         []string          `yaml:"listen"`
	PrivateKeyFile string            `yaml:"privateKeyFile"`
	Bootstrap      []string          `yaml:"bootstrap"`
	TransactionTTL time.Duration     `yaml:"transactionTtl"`
	WantlistStore  string            `yaml:"wantlistStore"`
	Api            ApiConfig         `yaml:"api"`
	Logging        LoggingConfig     `yaml:"logging"`
	ConnManager    ConnManagerConfig `yaml:"connManager"`
	RateLimit      RateLimitConfig   `yaml:"rateLimit"`
}

type ApiConfig struct {
	// Listen address of the HTTP API. The API is disabled when empty
	Listen string `yaml:"listen"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ConnManagerConfig struct {
	Low         int           `yaml:"low"`
	High        int           `yaml:"high"`
	GracePeriod time.Duration `yaml:"gracePeriod"`
}

// RateLimitConfig limits inbound messages per peer. A rate of 0 disables limiting
type RateLimitConfig struct {
	MessagesPerSecond float64 `yaml:"messagesPerSecond"`
	Burst             int     `yaml:"burst"`
}

// Default returns the configuration used for any values not set in the config file
func Default() *Config {
	return &Config{
		Identity: "anonymous",
		Listen: []string{
			"/ip4/0.0.0.0/tcp/4040",
		},
		PrivateKeyFile: "exchange.key",
		TransactionTTL: 2 * time.Minute,
		Logging: LoggingConfig{
			Level: "info",
		},
		ConnManager: ConnManagerConfig{
			Low:         100,
			High:        400,
			GracePeriod: time.Minute,
		},
		RateLimit: RateLimitConfig{
			MessagesPerSecond: 100,
			Burst:             200,
		},
	}
}

// Load reads the config file at path on top of the defaults. An empty path
// returns the defaults
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewFromReader(f)
}

func NewFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Listen) == 0 {
		return ErrNoListenAddress
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.ConnManager.Low > c.ConnManager.High {
		return ErrInvalidConnManager
	}
	if c.RateLimit.MessagesPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return ErrInvalidRateLimit
	}
	if c.TransactionTTL < 0 {
		return ErrInvalidTTL
	}
	return nil
}

// LogLevel returns the slog level for the configured level name
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLogLevel, c.Logging.Level)
	}
}
