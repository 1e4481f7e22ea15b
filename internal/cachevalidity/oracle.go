// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/transitsync/internal/logging"
	"github.com/tomtom215/transitsync/internal/metrics"
	"github.com/tomtom215/transitsync/internal/models"
)

// VersionLayout formats the daily dataset version.
const VersionLayout = "2006-01-02"

// Reasons reported in Result.Reason.
const (
	ReasonValid           = "valid"
	ReasonMissingVersion  = "missing_version"
	ReasonEmpty           = "empty"
	ReasonVersionMismatch = "version_mismatch"
)

// Result is the outcome of one validity check.
type Result struct {
	Valid         bool
	Reason        string
	LatestVersion string
	// StoredVersion is the version found before the check wrote anything;
	// empty when there was no record.
	StoredVersion string
	RowCount      int
}

// Oracle decides whether the persisted static dataset is current.
type Oracle struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OracleOption {
	return func(o *Oracle) { o.now = now }
}

// WithLocation sets the zone in which the daily version rolls over.
func WithLocation(loc *time.Location) OracleOption {
	return func(o *Oracle) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// NewOracle creates an Oracle over store.
func NewOracle(store Store, opts ...OracleOption) *Oracle {
	o := &Oracle{store: store, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LatestVersion is the dataset version published for the day containing now.
func (o *Oracle) LatestVersion(now time.Time) string {
	return now.In(o.loc).Format(VersionLayout)
}

// Check compares the stored version record and stop count against today's
// version.
//
// When the cache is invalid the latest version is written immediately, before
// any data is refreshed. Callers must follow an invalid result with a refresh
// (see Refresher), or revoke the record if the refresh fails. A valid result
// never writes.
func (o *Oracle) Check(ctx context.Context) (Result, error) {
	now := o.now()
	res := Result{LatestVersion: o.LatestVersion(now)}

	rec, err := o.store.GetVersionRecord(ctx)
	if err != nil {
		metrics.RecordCacheCheck("error")
		return res, fmt.Errorf("read version record: %w", err)
	}
	count, err := o.store.Count(ctx)
	if err != nil {
		metrics.RecordCacheCheck("error")
		return res, fmt.Errorf("count static rows: %w", err)
	}
	res.RowCount = count
	if rec != nil {
		res.StoredVersion = rec.Version
	}

	switch {
	case rec == nil:
		res.Reason = ReasonMissingVersion
	case count <= 0:
		res.Reason = ReasonEmpty
	case rec.Version != res.LatestVersion:
		res.Reason = ReasonVersionMismatch
	default:
		res.Valid = true
		res.Reason = ReasonValid
		metrics.RecordCacheCheck(res.Reason)
		return res, nil
	}

	metrics.RecordCacheCheck(res.Reason)
	logging.Info().
		Str("reason", res.Reason).
		Str("stored_version", res.StoredVersion).
		Str("latest_version", res.LatestVersion).
		Int("rows", count).
		Msg("static cache invalid")

	stamp := &models.CacheVersionRecord{Version: res.LatestVersion, RecordedAt: now.UTC()}
	if err := o.store.PutVersionRecord(ctx, stamp); err != nil {
		return res, fmt.Errorf("write version record: %w", err)
	}
	return res, nil
}
