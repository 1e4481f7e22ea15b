// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package config loads and validates transitsync configuration.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file, then environment variables. Later layers win.

# Environment Variables

Stream:
  - STREAM_URL: websocket endpoint (required)
  - STREAM_SUBSCRIPTION_KEY: key sent in the subscription request
  - STREAM_FILTER: comma-separated message classes to enable
  - STREAM_QUERY: field selection sent with the subscription
  - STREAM_RECONNECT_INTERVAL: fixed wait between reconnect attempts (default: 5s)

Liveness:
  - LIVENESS_IDLE_DELAY: silence before the first ping (default: 20s)
  - LIVENESS_IDLE_JITTER: random extra delay added to the idle timer (default: 5s)
  - LIVENESS_PING_INTERVAL: gap between pings (default: 3s)
  - LIVENESS_MAX_PINGS: unanswered pings before reconnecting (default: 3)

Static dataset cache:
  - CACHE_BACKEND: badger, redis or memory (default: badger)
  - CACHE_BADGER_PATH: badger directory
  - CACHE_DATASET_URL: GTFS static zip to refresh from
  - CACHE_REFRESH_INTERVAL: validity check period (default: 1h)
  - CACHE_VERSION_TIMEZONE: IANA zone for the daily version (default: UTC)
  - REDIS_ADDRESS, REDIS_PASSWORD, REDIS_DB

HTTP server:
  - HTTP_HOST (default: 0.0.0.0), HTTP_PORT (default: 3857), HTTP_TIMEOUT
  - CORS_ORIGINS: comma-separated origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW

Logging:
  - LOG_LEVEL (default: info), LOG_FORMAT json|console, LOG_CALLER

# Config File

CONFIG_PATH points at a YAML file; otherwise config.yaml, config.yml and
/etc/transitsync/config.yaml are tried in order. Keys mirror the koanf tags:

	stream:
	  url: wss://stream.example.org/v1/vehicles
	  filter: [vehicles]
	liveness:
	  max_pings: 3
	cache:
	  backend: redis
	redis:
	  address: localhost:6379
*/
package config
