// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/gocarina/gocsv"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/transitsync/internal/logging"
	"github.com/tomtom215/transitsync/internal/metrics"
	"github.com/tomtom215/transitsync/internal/models"
)

// ErrCircuitOpen is returned while the dataset endpoint's breaker is open.
var ErrCircuitOpen = gobreaker.ErrOpenState

// maxDatasetBytes caps the downloaded archive.
const maxDatasetBytes = 512 << 20

// Fetcher downloads the complete static dataset.
type Fetcher interface {
	FetchAllRows(ctx context.Context) ([]models.StaticDatasetRow, error)
}

// HTTPFetcher downloads a GTFS static zip and extracts stops and routes.
// Downloads go through a circuit breaker so a failing endpoint is not
// hammered by every refresh tick.
type HTTPFetcher struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]byte]
	name   string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*fetcherOptions)

type fetcherOptions struct {
	client    *http.Client
	tripAfter uint32
	openFor   time.Duration
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(o *fetcherOptions) { o.client = c }
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(tripAfter uint32, openFor time.Duration) FetcherOption {
	return func(o *fetcherOptions) {
		o.tripAfter = tripAfter
		o.openFor = openFor
	}
}

// NewHTTPFetcher creates a fetcher for the GTFS zip at url.
func NewHTTPFetcher(url string, timeout time.Duration, opts ...FetcherOption) *HTTPFetcher {
	o := fetcherOptions{
		client:    &http.Client{Timeout: timeout},
		tripAfter: 3,
		openFor:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	name := "static-dataset"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     o.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &HTTPFetcher{url: url, client: o.client, cb: cb, name: name}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// FetchAllRows downloads and parses the dataset. Rows carry no version;
// the Refresher stamps them.
func (f *HTTPFetcher) FetchAllRows(ctx context.Context) ([]models.StaticDatasetRow, error) {
	body, err := f.cb.Execute(func() ([]byte, error) {
		return f.download(ctx)
	})
	if err != nil {
		return nil, err
	}
	return ParseDataset(body)
}

func (f *HTTPFetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build dataset request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download dataset: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(body) > maxDatasetBytes {
		return nil, fmt.Errorf("dataset exceeds %d bytes", maxDatasetBytes)
	}
	return body, nil
}

type gtfsStop struct {
	ID        string  `csv:"stop_id"`
	Code      string  `csv:"stop_code"`
	Name      string  `csv:"stop_name"`
	Latitude  float64 `csv:"stop_lat"`
	Longitude float64 `csv:"stop_lon"`
}

type gtfsRoute struct {
	ID        string `csv:"route_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Color     string `csv:"route_color"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseDataset extracts stops.txt and routes.txt from a GTFS zip. stops.txt
// is required; routes.txt is optional.
func ParseDataset(archive []byte) ([]models.StaticDatasetRow, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open dataset archive: %w", err)
	}

	var stops []gtfsStop
	var routes []gtfsRoute
	seenStops := false
	for _, zf := range zr.File {
		switch path.Base(zf.Name) {
		case "stops.txt":
			if err := unmarshalZipCSV(zf, &stops); err != nil {
				return nil, err
			}
			seenStops = true
		case "routes.txt":
			if err := unmarshalZipCSV(zf, &routes); err != nil {
				return nil, err
			}
		}
	}
	if !seenStops {
		return nil, errors.New("dataset archive has no stops.txt")
	}

	rows := make([]models.StaticDatasetRow, 0, len(stops)+len(routes))
	for i := range stops {
		if stops[i].ID == "" {
			continue
		}
		rows = append(rows, models.StaticDatasetRow{
			Kind:      models.RowKindStop,
			ID:        stops[i].ID,
			Code:      stops[i].Code,
			Name:      stops[i].Name,
			Latitude:  stops[i].Latitude,
			Longitude: stops[i].Longitude,
		})
	}
	for i := range routes {
		if routes[i].ID == "" {
			continue
		}
		name := routes[i].ShortName
		if name == "" {
			name = routes[i].LongName
		}
		rows = append(rows, models.StaticDatasetRow{
			Kind:  models.RowKindRoute,
			ID:    routes[i].ID,
			Name:  name,
			Color: routes[i].Color,
		})
	}
	return rows, nil
}

func unmarshalZipCSV(zf *zip.File, out interface{}) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", zf.Name, err)
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	// Tolerate rows with missing trailing columns.
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if err := gocsv.UnmarshalCSV(r, out); err != nil {
		return fmt.Errorf("parse %s: %w", zf.Name, err)
	}
	return nil
}
