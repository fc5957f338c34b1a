// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	content := []byte(`
server:
  host: testhost
  port: 9090

api:
  base_path: /api/v1
  swagger_host: test.api.com

content:
  base_url: https://content.example.com
  timeout_seconds: 5
  cache_ttl_seconds: 60

user:
  base_url: https://users.example.com
  timeout_seconds: 4

auth:
  secure_cookies: true
  skew_millis: 15000
  access_ttl_seconds: 1800

cache:
  enabled: true
  host: redis.local
  port: 6380

metrics:
  enabled: true
  path: /metrics
`)

	tmpfile, err := os.CreateTemp("", "config.*.yaml")
	assert.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.Write(content)
	assert.NoError(t, err)
	tmpfile.Close()

	// Test loading configuration
	cfg, err := LoadConfig(tmpfile.Name())
	assert.NoError(t, err)
	assert.NotNil(t, cfg)

	// Verify values
	assert.Equal(t, "testhost", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/api/v1", cfg.API.BasePath)
	assert.Equal(t, "https://content.example.com", cfg.Content.BaseURL)
	assert.Equal(t, 5, cfg.Content.TimeoutSeconds)
	assert.Equal(t, 60, cfg.Content.CacheTTL)
	assert.Equal(t, "https://users.example.com", cfg.User.BaseURL)
	assert.Equal(t, true, cfg.Auth.SecureCookies)
	assert.Equal(t, int64(15000), cfg.Auth.SkewMillis)
	assert.Equal(t, 1800, cfg.Auth.AccessTTL)
	assert.Equal(t, "redis.local", cfg.Cache.Host)
	assert.Equal(t, true, cfg.Metrics.Enabled)
}

func TestDefaultValues(t *testing.T) {
	// Create minimal config
	content := []byte(`{}`)

	tmpfile, err := os.CreateTemp("", "config.*.yaml")
	assert.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.Write(content)
	assert.NoError(t, err)
	tmpfile.Close()

	// Test loading configuration
	cfg, err := LoadConfig(tmpfile.Name())
	assert.NoError(t, err)

	// Verify default values
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/", cfg.API.BasePath)
	assert.Equal(t, 8, cfg.Content.TimeoutSeconds)
	assert.Equal(t, 300, cfg.Content.CacheTTL)
	assert.Equal(t, 8, cfg.User.TimeoutSeconds)
	assert.Equal(t, int64(30000), cfg.Auth.SkewMillis)
	assert.Equal(t, 3600, cfg.Auth.AccessTTL)
	assert.Equal(t, 60*60*24*30, cfg.Auth.RefreshTTL)
	assert.Equal(t, 55*60, cfg.Auth.ExpiryFallback)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestInvalidConfig(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		cfg, err := LoadConfig("does-not-exist.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("BadYAML", func(t *testing.T) {
		tmpfile, err := os.CreateTemp("", "config.*.yaml")
		assert.NoError(t, err)
		defer os.Remove(tmpfile.Name())

		_, err = tmpfile.Write([]byte("server: [not a mapping"))
		assert.NoError(t, err)
		tmpfile.Close()

		cfg, err := LoadConfig(tmpfile.Name())
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}
