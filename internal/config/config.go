// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/transitsync/internal/liveness"
	"github.com/tomtom215/transitsync/internal/transport"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables listed in envMappings
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("load config")
//	}
//	t := transport.New(cfg.TransportConfig())
type Config struct {
	Stream     StreamConfig     `koanf:"stream"`
	Liveness   LivenessConfig   `koanf:"liveness"`
	Cache      CacheConfig      `koanf:"cache"`
	Redis      RedisConfig      `koanf:"redis"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// StreamConfig configures the upstream vehicle stream.
type StreamConfig struct {
	URL               string        `koanf:"url" validate:"required,url"`
	SubscriptionKey   string        `koanf:"subscription_key"`
	Filter            []string      `koanf:"filter"`
	Query             string        `koanf:"query"`
	HandshakeTimeout  time.Duration `koanf:"handshake_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ReconnectInterval time.Duration `koanf:"reconnect_interval" validate:"gt=0"`
	MaxMessageBytes   int64         `koanf:"max_message_bytes" validate:"gte=0"`
}

// LivenessConfig configures the ping/pong idle detector.
type LivenessConfig struct {
	IdleDelay    time.Duration `koanf:"idle_delay" validate:"gt=0"`
	IdleJitter   time.Duration `koanf:"idle_jitter" validate:"gte=0"`
	PingInterval time.Duration `koanf:"ping_interval" validate:"gt=0"`
	MaxPings     int           `koanf:"max_pings" validate:"gte=1"`
	PingToken    string        `koanf:"ping_token" validate:"required"`
	PongToken    string        `koanf:"pong_token" validate:"required"`
}

// Cache backends.
const (
	CacheBackendBadger = "badger"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// CacheConfig configures the static dataset cache and its validity check.
type CacheConfig struct {
	Backend         string        `koanf:"backend" validate:"oneof=badger redis memory"`
	BadgerPath      string        `koanf:"badger_path"`
	VersionTimezone string        `koanf:"version_timezone" validate:"required"`
	DatasetURL      string        `koanf:"dataset_url" validate:"omitempty,url"`
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gt=0"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout" validate:"gt=0"`
}

// RedisConfig is used when Cache.Backend is "redis".
type RedisConfig struct {
	Address   string `koanf:"address"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db" validate:"gte=0"`
	KeyPrefix string `koanf:"key_prefix"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SupervisorConfig tunes the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// TransportConfig builds the transport configuration from the stream and
// liveness sections.
func (c *Config) TransportConfig() transport.Config {
	return transport.Config{
		URL:               c.Stream.URL,
		HandshakeTimeout:  c.Stream.HandshakeTimeout,
		WriteTimeout:      c.Stream.WriteTimeout,
		ReconnectInterval: c.Stream.ReconnectInterval,
		MaxMessageBytes:   c.Stream.MaxMessageBytes,
		Liveness: liveness.Config{
			IdleDelay:    c.Liveness.IdleDelay,
			IdleJitter:   c.Liveness.IdleJitter,
			PingInterval: c.Liveness.PingInterval,
			MaxPings:     c.Liveness.MaxPings,
		},
		PingToken: c.Liveness.PingToken,
		PongToken: c.Liveness.PongToken,
	}
}

// SubscriptionPayload encodes the subscription request sent on every open.
// Filter entries are enabled message classes.
func (c *Config) SubscriptionPayload() ([]byte, error) {
	filter := make(map[string]bool, len(c.Stream.Filter))
	for _, f := range c.Stream.Filter {
		if f = strings.TrimSpace(f); f != "" {
			filter[f] = true
		}
	}
	return transport.SubscriptionRequest{
		Key:    c.Stream.SubscriptionKey,
		Filter: filter,
		Query:  c.Stream.Query,
	}.Encode()
}
