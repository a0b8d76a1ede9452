// Copyright 2025 AxonFlow
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

// Package config loads the service configuration from the environment.
// Everything has a usable default; the service starts with no environment
// at all and degrades to static data providers.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full environment-driven configuration surface.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// ServerFile is the YAML file declaring protocol servers. Empty means
	// no protocol clients; workers run on static providers.
	ServerFile string

	// CacheTTL bounds each provider's record cache.
	CacheTTL time.Duration

	// CallTimeout bounds each protocol call.
	CallTimeout time.Duration

	// NodeTimeout bounds each workflow node invocation.
	NodeTimeout time.Duration

	// HealthInterval drives the lifecycle manager's background sweep.
	HealthInterval time.Duration

	// RateLimitPerMinute caps calls per server per minute; 0 disables.
	RateLimitPerMinute int

	// RedisURL backs the distributed rate limiter. Empty falls back to the
	// in-memory window.
	RedisURL string

	// DatabaseURL enables the Postgres worker-record mirror. Empty disables
	// mirroring.
	DatabaseURL string

	// FallbackProviderID names the static fallback source.
	FallbackProviderID string

	// FallbackDataset optionally seeds the static fallback from YAML.
	FallbackDataset string

	// EnableProtocol makes new workers protocol-backed when servers are
	// configured.
	EnableProtocol bool
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		Port:               getEnv("PORT", "8080"),
		ServerFile:         getEnv("PROTOCOL_SERVER_FILE", ""),
		CacheTTL:           getEnvDuration("PROVIDER_CACHE_TTL", 5*time.Minute),
		CallTimeout:        getEnvDuration("PROTOCOL_CALL_TIMEOUT", 30*time.Second),
		NodeTimeout:        getEnvDuration("WORKFLOW_NODE_TIMEOUT", 30*time.Second),
		HealthInterval:     getEnvDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
		RedisURL:           getEnv("REDIS_URL", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		FallbackProviderID: getEnv("FALLBACK_PROVIDER_ID", "static"),
		FallbackDataset:    getEnv("FALLBACK_DATASET_FILE", ""),
		EnableProtocol:     getEnvBool("ENABLE_PROTOCOL", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
