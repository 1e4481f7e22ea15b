// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package transport

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/transitsync/internal/liveness"
	"github.com/tomtom215/transitsync/internal/logging"
	"github.com/tomtom215/transitsync/internal/metrics"
	"github.com/tomtom215/transitsync/internal/models"
)

// Config configures a Transport.
type Config struct {
	URL               string
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	ReconnectInterval time.Duration
	MaxMessageBytes   int64
	Liveness          liveness.Config

	// PingToken is sent as a text frame on each liveness ping.
	PingToken string
	// PongToken is the reply to PingToken. It is never forwarded.
	PongToken string
}

// DefaultConfig returns production defaults without a URL.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		ReconnectInterval: 5 * time.Second,
		MaxMessageBytes:   8 << 20,
		Liveness: liveness.Config{
			IdleDelay:    20 * time.Second,
			IdleJitter:   5 * time.Second,
			PingInterval: 3 * time.Second,
			MaxPings:     3,
		},
		PingToken: "ping",
		PongToken: "pong",
	}
}

// DataHandler receives every decoded, non-pong frame.
type DataHandler func(models.Batch)

// ErrorHandler receives liveness failures.
type ErrorHandler func(error)

// Decoder turns a raw frame into a batch.
type Decoder func(data []byte, binary bool) (models.Batch, error)

// Option configures a Transport.
type Option func(*Transport)

// WithDecoder replaces models.DecodeFrame.
func WithDecoder(d Decoder) Option {
	return func(t *Transport) { t.decode = d }
}

// WithDialer replaces the default websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(t *Transport) { t.dialer = d }
}

// WithLogger replaces the component logger.
//
//nolint:gocritic // zerolog.Logger is passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// WithLivenessOptions passes options to each connection's liveness timer.
func WithLivenessOptions(opts ...liveness.Option) Option {
	return func(t *Transport) { t.livenessOpts = opts }
}

// Transport owns one logical stream subscription over a websocket and keeps
// it alive: it reconnects at a fixed interval without a retry limit, resends
// the subscription payload on every open, and declares silent connections
// dead through the liveness protocol.
//
// Handlers run on the transport's single connection goroutine, one at a
// time. They must not call Unsubscribe.
type Transport struct {
	cfg          Config
	dialer       *websocket.Dialer
	decode       Decoder
	log          zerolog.Logger
	livenessOpts []liveness.Option
	state        *stateMachine
	malformedLog rate.Sometimes
	dials        atomic.Int64

	// lifecycleMu serializes Subscribe and Unsubscribe.
	lifecycleMu sync.Mutex

	mu      sync.Mutex
	payload []byte
	onData  DataHandler
	onError ErrorHandler
	session *session
}

type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	reopen chan struct{}
	done   chan struct{}
}

func (s *session) requestReopen() {
	select {
	case s.reopen <- struct{}{}:
	default:
	}
}

func (s *session) drainReopen() {
	select {
	case <-s.reopen:
	default:
	}
}

// New creates an idle Transport.
func New(cfg Config, opts ...Option) *Transport {
	defaults := DefaultConfig()
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaults.ReconnectInterval
	}
	if cfg.PingToken == "" {
		cfg.PingToken = defaults.PingToken
	}
	if cfg.PongToken == "" {
		cfg.PongToken = defaults.PongToken
	}

	t := &Transport{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
		},
		decode:       models.DecodeFrame,
		log:          logging.WithComponent("transport"),
		malformedLog: rate.Sometimes{First: 3, Interval: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.state = newStateMachine(t.log)
	return t
}

// Subscribe starts the subscription, or if one is already running replaces
// the payload and handlers and reopens the existing connection. It never
// creates a second socket. The subscription ends when ctx is cancelled or
// Unsubscribe is called.
func (t *Transport) Subscribe(ctx context.Context, payload []byte, onData DataHandler, onError ErrorHandler) {
	t.lifecycleMu.Lock()
	defer t.lifecycleMu.Unlock()

	t.mu.Lock()
	t.payload = bytes.Clone(payload)
	t.onData = onData
	t.onError = onError
	prev := t.session
	t.mu.Unlock()

	if prev != nil {
		if prev.ctx.Err() == nil {
			t.log.Debug().Msg("subscription updated, reopening connection")
			prev.requestReopen()
			return
		}
		// The previous parent context ended; let its loop finish first.
		<-prev.done
	}

	sctx, cancel := context.WithCancel(logging.ContextWithNewCorrelationID(ctx))
	s := &session{
		ctx:    sctx,
		cancel: cancel,
		reopen: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	t.mu.Lock()
	t.session = s
	t.mu.Unlock()

	t.state.fire(eventSubscribe)
	go t.run(s)
}

// Unsubscribe closes the connection and cancels pending liveness timers and
// reconnect waits. No handler is called after it returns. Calling it
// without an active subscription is a no-op.
func (t *Transport) Unsubscribe() {
	t.lifecycleMu.Lock()
	defer t.lifecycleMu.Unlock()

	t.mu.Lock()
	s := t.session
	t.session = nil
	t.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// State returns the current connection state.
func (t *Transport) State() ConnectionState {
	return t.state.current()
}

// Dials returns the number of dial attempts made so far.
func (t *Transport) Dials() int64 {
	return t.dials.Load()
}

func (t *Transport) handlers() (DataHandler, ErrorHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onData, t.onError
}

func (t *Transport) currentPayload() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.payload
}

type closeReason int32

const (
	reasonNone closeReason = iota
	reasonDropped
	reasonReopen
	reasonLiveness
	reasonCancelled
)

func (t *Transport) run(s *session) {
	defer close(s.done)
	defer t.state.fire(eventUnsubscribe)

	log := t.log.With().
		Str("url", t.cfg.URL).
		Str("correlation_id", logging.CorrelationIDFromContext(s.ctx)).
		Logger()

	for {
		conn, err := t.dialWithRetry(s, log)
		if err != nil {
			return
		}

		reason := t.serve(s, conn, log)
		if s.ctx.Err() != nil {
			return
		}

		switch reason {
		case reasonReopen:
			t.state.fire(eventDropped)
			continue
		case reasonLiveness:
			t.state.fire(eventReconnect)
		default:
			t.state.fire(eventDropped)
		}

		log.Info().Dur("retry_in", t.cfg.ReconnectInterval).Msg("stream disconnected, reconnecting")
		select {
		case <-time.After(t.cfg.ReconnectInterval):
		case <-s.ctx.Done():
			return
		}
	}
}

//nolint:gocritic // zerolog.Logger is passed by value
func (t *Transport) dialWithRetry(s *session, log zerolog.Logger) (*websocket.Conn, error) {
	var conn *websocket.Conn
	op := func() error {
		// The dial below uses the latest payload, so earlier reopen requests are moot.
		s.drainReopen()
		if t.dials.Add(1) > 1 {
			metrics.StreamReconnectAttempts.Inc()
		}
		c, err := t.dial(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return backoff.Permanent(s.ctx.Err())
			}
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("stream dial failed")
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(t.cfg.ReconnectInterval), s.ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return conn, nil
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := t.dialer.DialContext(ctx, t.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			t.log.Debug().Err(cerr).Msg("failed to close handshake response body")
		}
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if t.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(t.cfg.MaxMessageBytes)
	}
	return conn, nil
}

// serve runs one connection until it drops, is reopened, fails liveness, or
// the session ends.
//
//nolint:gocritic // zerolog.Logger is passed by value
func (t *Transport) serve(s *session, ws *websocket.Conn, log zerolog.Logger) closeReason {
	c := &connection{conn: ws, writeTimeout: t.cfg.WriteTimeout}
	t.state.fire(eventOpened)
	log.Info().Msg("stream connected")

	if err := c.write(websocket.TextMessage, t.currentPayload()); err != nil {
		metrics.RecordSendFailure("subscribe")
		log.Warn().Err(err).Msg("subscription send failed")
	}

	var lastFrame atomic.Int64
	lastFrame.Store(time.Now().UnixNano())
	exhausted := make(chan struct{}, 1)

	timer := liveness.New(t.cfg.Liveness,
		func(attempt int) {
			if attempt == 1 {
				t.state.fire(eventIdleTimeout)
			}
			metrics.StreamPingsSent.Inc()
			if err := c.write(websocket.TextMessage, []byte(t.cfg.PingToken)); err != nil {
				metrics.RecordSendFailure("ping")
				log.Warn().Err(err).Int("attempt", attempt).Msg("ping send failed")
			}
		},
		func() {
			select {
			case exhausted <- struct{}{}:
			default:
			}
		},
		t.livenessOpts...,
	)
	defer timer.Stop()

	onFrame := func() {
		lastFrame.Store(time.Now().UnixNano())
		timer.Reset()
		if t.state.current() == StateAwaitingPong {
			t.state.fire(eventPong)
		}
	}
	ws.SetPongHandler(func(string) error {
		onFrame()
		return nil
	})
	timer.Start()

	var reason atomic.Int32
	readDone := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		var r closeReason
		select {
		case <-s.ctx.Done():
			r = reasonCancelled
		case <-s.reopen:
			r = reasonReopen
		case <-exhausted:
			r = reasonLiveness
		case <-readDone:
			return
		}
		reason.CompareAndSwap(int32(reasonNone), int32(r))
		c.close(r != reasonLiveness)
	}()

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if closeReason(reason.Load()) == reasonNone {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Info().Msg("stream closed by server")
				} else {
					log.Warn().Err(err).Msg("stream read failed")
				}
			}
			break
		}
		onFrame()
		t.handleFrame(s, mt, data, log)
	}
	close(readDone)
	<-watchDone
	c.close(true)

	r := closeReason(reason.Load())
	if r == reasonNone {
		r = reasonDropped
	}
	if r == reasonLiveness {
		lerr := &LivenessError{
			Pings:   timer.PingsSent(),
			Silence: time.Since(time.Unix(0, lastFrame.Load())),
		}
		metrics.StreamLivenessFailures.Inc()
		t.state.fire(eventLivenessFailed)
		log.Warn().Err(lerr).Msg("stream declared dead")
		if _, onError := t.handlers(); onError != nil && s.ctx.Err() == nil {
			onError(lerr)
		}
	}
	return r
}

//nolint:gocritic // zerolog.Logger is passed by value
func (t *Transport) handleFrame(s *session, messageType int, data []byte, log zerolog.Logger) {
	if s.ctx.Err() != nil {
		metrics.RecordFrame("discarded")
		return
	}
	if messageType == websocket.TextMessage && bytes.Equal(bytes.TrimSpace(data), []byte(t.cfg.PongToken)) {
		metrics.RecordFrame("pong")
		return
	}

	batch, err := t.decode(data, messageType == websocket.BinaryMessage)
	if err != nil {
		metrics.RecordFrame("malformed")
		t.malformedLog.Do(func() {
			log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed frame")
		})
		return
	}

	metrics.RecordFrame("data")
	if onData, _ := t.handlers(); onData != nil {
		onData(batch)
	}
}

// connection serializes writes on one websocket.
type connection struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
}

func (c *connection) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(messageType, data)
}

// close tears the socket down; graceful sends a close frame first.
func (c *connection) close(graceful bool) {
	c.closeOnce.Do(func() {
		if graceful {
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
		}
		_ = c.conn.Close()
	})
}
