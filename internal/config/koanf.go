// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/transitsync/internal/transport"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/transitsync/config.yaml",
}

// ConfigPathEnvVar names an explicit config file.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	t := transport.DefaultConfig()
	return &Config{
		Stream: StreamConfig{
			Filter:            []string{},
			HandshakeTimeout:  t.HandshakeTimeout,
			WriteTimeout:      t.WriteTimeout,
			ReconnectInterval: t.ReconnectInterval,
			MaxMessageBytes:   t.MaxMessageBytes,
		},
		Liveness: LivenessConfig{
			IdleDelay:    t.Liveness.IdleDelay,
			IdleJitter:   t.Liveness.IdleJitter,
			PingInterval: t.Liveness.PingInterval,
			MaxPings:     t.Liveness.MaxPings,
			PingToken:    t.PingToken,
			PongToken:    t.PongToken,
		},
		Cache: CacheConfig{
			Backend:         CacheBackendBadger,
			BadgerPath:      "/data/transitsync/cache",
			VersionTimezone: "UTC",
			RefreshInterval: time.Hour,
			FetchTimeout:    2 * time.Minute,
		},
		Redis: RedisConfig{
			Address:   "",
			DB:        0,
			KeyPrefix: "transitsync:",
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3857,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads defaults, the optional config file and the environment, then
// validates the result.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// STREAM_URL -> stream.url, HTTP_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as
// strings from the environment.
var sliceConfigPaths = []string{
	"stream.filter",
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"stream_url":                "stream.url",
	"stream_subscription_key":   "stream.subscription_key",
	"stream_filter":             "stream.filter",
	"stream_query":              "stream.query",
	"stream_handshake_timeout":  "stream.handshake_timeout",
	"stream_reconnect_interval": "stream.reconnect_interval",

	"liveness_idle_delay":    "liveness.idle_delay",
	"liveness_idle_jitter":   "liveness.idle_jitter",
	"liveness_ping_interval": "liveness.ping_interval",
	"liveness_max_pings":     "liveness.max_pings",

	"cache_backend":          "cache.backend",
	"cache_badger_path":      "cache.badger_path",
	"cache_dataset_url":      "cache.dataset_url",
	"cache_refresh_interval": "cache.refresh_interval",
	"cache_version_timezone": "cache.version_timezone",

	"redis_address":  "redis.address",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its koanf path. Unmapped
// variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
