// Package config loads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server  ServerConfig
	API     APIConfig
	Store   StoreConfig
	Watch   WatchConfig
	Alarms  AlarmConfig
	Logging LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// APIConfig holds remote Recipe AI backend configuration.
type APIConfig struct {
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080/api/"`
}

// StoreConfig holds local key-value store configuration.
type StoreConfig struct {
	Dir string `envconfig:"DIR" default:"/tmp/recipeai-companion"`
}

// WatchConfig holds page watcher configuration.
type WatchConfig struct {
	SettleDelayMS int `envconfig:"SETTLE_DELAY_MS" default:"1000"`
	PollSeconds   int `envconfig:"POLL_SECONDS" default:"5"`
}

// AlarmConfig holds meal reminder configuration.
type AlarmConfig struct {
	Enabled    bool `envconfig:"ENABLED" default:"true"`
	LunchHour  int  `envconfig:"LUNCH_HOUR" default:"12"`
	DinnerHour int  `envconfig:"DINNER_HOUR" default:"19"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEVELOPMENT" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("companion", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8090", Host: "127.0.0.1"},
		API:     APIConfig{BaseURL: "http://localhost:8080/api/"},
		Store:   StoreConfig{Dir: "/tmp/recipeai-companion"},
		Watch:   WatchConfig{SettleDelayMS: 1000, PollSeconds: 5},
		Alarms:  AlarmConfig{Enabled: true, LunchHour: 12, DinnerHour: 19},
		Logging: LogConfig{Level: "info"},
	}
}
