// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package coordinator

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/transitsync/internal/logging"
	"github.com/tomtom215/transitsync/internal/metrics"
	"github.com/tomtom215/transitsync/internal/models"
	"github.com/tomtom215/transitsync/internal/registry"
	"github.com/tomtom215/transitsync/internal/transport"
)

// ErrNotStarted is returned by Stop and Resubscribe before Start.
var ErrNotStarted = errors.New("coordinator not started")

// Stream is the part of *transport.Transport the coordinator uses.
type Stream interface {
	Subscribe(ctx context.Context, payload []byte, onData transport.DataHandler, onError transport.ErrorHandler)
	Unsubscribe()
	State() transport.ConnectionState
}

// ChangeListener is called with every newly published registry. Listeners
// run on the apply path and must not block.
type ChangeListener func(*registry.Registry)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the coordinator logger.
//
//nolint:gocritic // zerolog.Logger is passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// Coordinator owns the vehicle registry. It is the only writer: every batch
// from the stream is merged under applyMu and the result is published
// through an atomic pointer, so readers never lock.
type Coordinator struct {
	stream  Stream
	log     zerolog.Logger
	now     func() time.Time
	current atomic.Pointer[registry.Registry]

	applyMu    sync.Mutex
	listeners  []ChangeListener
	lastUpdate time.Time

	mu           sync.RWMutex
	payload      []byte
	ctx          context.Context
	started      bool
	lastErr      error
	lastErrAt    time.Time
	reconnecting bool
}

// New creates a Coordinator that subscribes to stream with payload.
func New(stream Stream, payload []byte, opts ...Option) *Coordinator {
	c := &Coordinator{
		stream:  stream,
		payload: bytes.Clone(payload),
		log:     logging.WithComponent("coordinator"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(registry.Empty())
	return c
}

// OnChange registers a listener for published registries.
func (c *Coordinator) OnChange(fn ChangeListener) {
	c.applyMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.applyMu.Unlock()
}

// Start subscribes to the stream. The subscription lives until Stop or until
// ctx is cancelled. Calling Start again resubscribes on the same connection.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.started = true
	payload := c.payload
	c.mu.Unlock()

	c.log.Info().Int("payload_bytes", len(payload)).Msg("subscribing to vehicle stream")
	c.stream.Subscribe(ctx, payload, c.handleBatch, c.handleError)
	return nil
}

// Resubscribe replaces the subscription payload and reopens the stream.
func (c *Coordinator) Resubscribe(payload []byte) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.payload = bytes.Clone(payload)
	ctx := c.ctx
	c.mu.Unlock()

	c.stream.Subscribe(ctx, payload, c.handleBatch, c.handleError)
	return nil
}

// Stop unsubscribes. The registry keeps its last contents.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.started = false
	c.mu.Unlock()

	c.stream.Unsubscribe()
	c.log.Info().Msg("unsubscribed from vehicle stream")
	return nil
}

// GetAll returns the current registry. The value is immutable and stays
// consistent however long the caller holds it.
func (c *Coordinator) GetAll() *registry.Registry {
	return c.current.Load()
}

// Get returns one vehicle from the current registry.
func (c *Coordinator) Get(id string) (models.VehicleUpdate, bool) {
	return c.GetAll().Get(id)
}

// Reset replaces the registry with an empty one.
func (c *Coordinator) Reset() {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	empty := registry.Empty()
	c.current.Store(empty)
	c.lastUpdate = c.now()
	metrics.RecordRegistryPublished(0, c.lastUpdate)
	c.notify(empty)
	c.log.Info().Msg("vehicle registry reset")
}

// LastUpdate returns when the registry last changed, or the zero time.
func (c *Coordinator) LastUpdate() time.Time {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	return c.lastUpdate
}

// Status summarizes the sync state for operators.
func (c *Coordinator) Status() models.SyncStatus {
	st := models.SyncStatus{
		ConnectionState: string(c.stream.State()),
		Vehicles:        c.GetAll().Len(),
	}
	if last := c.LastUpdate(); !last.IsZero() {
		st.LastUpdate = &last
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
		at := c.lastErrAt
		st.LastErrorAt = &at
	}
	st.Reconnecting = c.reconnecting
	return st
}

// handleBatch is the transport data handler.
func (c *Coordinator) handleBatch(b models.Batch) {
	c.apply(b)

	c.mu.Lock()
	c.reconnecting = false
	c.mu.Unlock()
}

func (c *Coordinator) apply(b models.Batch) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	start := time.Now()
	prev := c.current.Load()
	next, stats := registry.MergeWithStats(prev, b.Updates, b.Mode)
	metrics.RecordMerge(b.Mode.String(), stats.Accepted, stats.Stale, stats.Unchanged, b.Dropped, time.Since(start))

	if next == prev {
		return
	}
	c.current.Store(next)
	c.lastUpdate = c.now()
	metrics.RecordRegistryPublished(next.Len(), c.lastUpdate)
	c.notify(next)

	c.log.Debug().
		Str("mode", b.Mode.String()).
		Int("entries", len(b.Updates)).
		Int("accepted", stats.Accepted).
		Int("added", stats.Added).
		Int("stale", stats.Stale).
		Int("unchanged", stats.Unchanged).
		Int("vehicles", next.Len()).
		Msg("registry updated")
}

// notify must be called with applyMu held.
func (c *Coordinator) notify(r *registry.Registry) {
	for _, fn := range c.listeners {
		fn(r)
	}
}

// handleError is the transport error handler.
func (c *Coordinator) handleError(err error) {
	now := c.now()

	c.mu.Lock()
	c.lastErr = err
	c.lastErrAt = now
	c.reconnecting = errors.Is(err, transport.ErrLivenessFailure)
	c.mu.Unlock()

	var le *transport.LivenessError
	if errors.As(err, &le) {
		c.log.Warn().Err(err).Int("pings", le.Pings).Dur("silence", le.Silence).Msg("stream liveness lost, reconnecting")
		return
	}
	c.log.Warn().Err(err).Msg("stream error")
}
