// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/transitsync/internal/validation"
)

// Validate checks struct tags first, then rules that span fields.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLiveness()
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendRedis:
		if c.Redis.Address == "" {
			return errors.New("REDIS_ADDRESS is required when cache backend is redis")
		}
	case CacheBackendBadger:
		if c.Cache.BadgerPath == "" {
			return errors.New("CACHE_BADGER_PATH is required when cache backend is badger")
		}
	}
	if _, err := time.LoadLocation(c.Cache.VersionTimezone); err != nil {
		return fmt.Errorf("CACHE_VERSION_TIMEZONE %q is not a valid IANA zone: %w", c.Cache.VersionTimezone, err)
	}
	return nil
}

func (c *Config) validateLiveness() error {
	if c.Liveness.PingToken == c.Liveness.PongToken {
		return errors.New("liveness ping_token and pong_token must differ")
	}
	if c.Liveness.IdleJitter >= c.Liveness.IdleDelay {
		return fmt.Errorf("LIVENESS_IDLE_JITTER (%s) must be smaller than LIVENESS_IDLE_DELAY (%s)",
			c.Liveness.IdleJitter, c.Liveness.IdleDelay)
	}
	return nil
}

// Location returns the zone used to compute the latest dataset version.
// Validate has already checked that it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Cache.VersionTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
