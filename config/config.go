// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	API struct {
		BasePath    string `yaml:"base_path"`
		SwaggerHost string `yaml:"swagger_host"`
	} `yaml:"api"`

	Content struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		CacheTTL       int    `yaml:"cache_ttl_seconds"`
	} `yaml:"content"`

	User struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"user"`

	Auth struct {
		SecureCookies  bool  `yaml:"secure_cookies"`
		SkewMillis     int64 `yaml:"skew_millis"`
		AccessTTL      int   `yaml:"access_ttl_seconds"`      // fallback when the issuer omits expires_in
		RefreshTTL     int   `yaml:"refresh_ttl_seconds"`     // refresh/identity cookie lifetime
		ExpiryFallback int   `yaml:"expiry_fallback_seconds"` // af_expires_at fallback window
	} `yaml:"auth"`

	Cache struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		DB       int    `yaml:"db"`
		Password string `yaml:"password"`
	} `yaml:"cache"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Set defaults if not specified
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.API.BasePath == "" {
		config.API.BasePath = "/"
	}
	if config.Content.TimeoutSeconds == 0 {
		config.Content.TimeoutSeconds = 8
	}
	if config.Content.CacheTTL == 0 {
		config.Content.CacheTTL = 300
	}
	if config.User.TimeoutSeconds == 0 {
		config.User.TimeoutSeconds = 8
	}
	if config.Auth.SkewMillis == 0 {
		config.Auth.SkewMillis = 30_000
	}
	if config.Auth.AccessTTL == 0 {
		config.Auth.AccessTTL = 3600
	}
	if config.Auth.RefreshTTL == 0 {
		config.Auth.RefreshTTL = 60 * 60 * 24 * 30
	}
	if config.Auth.ExpiryFallback == 0 {
		config.Auth.ExpiryFallback = 55 * 60
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}

	return config, nil
}

// ContentTimeout returns the content API call timeout as a duration.
func (c *Config) ContentTimeout() time.Duration {
	return time.Duration(c.Content.TimeoutSeconds) * time.Second
}

// UserTimeout returns the user API call timeout as a duration.
func (c *Config) UserTimeout() time.Duration {
	return time.Duration(c.User.TimeoutSeconds) * time.Second
}
