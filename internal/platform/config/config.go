// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (store, gateway) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the client is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/studentsstage/stagectl/internal/platform/constants"
)

// # Configuration Schema

// Config holds all runtime configuration for the stagectl client.
type Config struct {

	// APIBaseURL overrides the backend base URL. The gateway normalizes the
	// value so that exactly one /api suffix remains.
	APIBaseURL string `env:"STAGE_API_URL"`

	// Credential persistence
	StoreDriver string `env:"STAGE_STORE_DRIVER" envDefault:"file"` // file | memory | redis
	StoreDir    string `env:"STAGE_STORE_DIR"`
	RedisURL    string `env:"STAGE_REDIS_URL"`

	// Local web surface
	ServerPort  string `env:"SERVER_PORT"  envDefault:"4180"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = constants.DefaultAPIBaseURL
	}

	// The file store defaults to ~/.config/stagectl, one per user.
	if cfg.StoreDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: failed to resolve home directory: %w", err)
		}
		cfg.StoreDir = filepath.Join(home, ".config", "stagectl")
	}

	if cfg.StoreDriver == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("config: STAGE_REDIS_URL is required when STAGE_STORE_DRIVER=redis")
	}

	return cfg, nil
}

// IsDevelopment reports whether the client is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the client is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
