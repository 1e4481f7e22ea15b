// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package transport

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	"github.com/tomtom215/transitsync/internal/metrics"
)

// ConnectionState is the lifecycle state of the stream connection.
type ConnectionState string

const (
	StateClosed       ConnectionState = "closed"
	StateConnecting   ConnectionState = "connecting"
	StateOpen         ConnectionState = "open"
	StateAwaitingPong ConnectionState = "awaiting_pong"
	StateFailed       ConnectionState = "failed"
)

// gaugeValue is the value exported on transitsync_stream_connection_state.
func (s ConnectionState) gaugeValue() float64 {
	switch s {
	case StateConnecting:
		return 1
	case StateOpen:
		return 2
	case StateAwaitingPong:
		return 3
	case StateFailed:
		return 4
	default:
		return 0
	}
}

const (
	eventSubscribe      = "subscribe"
	eventOpened         = "opened"
	eventIdleTimeout    = "idle_timeout"
	eventPong           = "pong"
	eventLivenessFailed = "liveness_failed"
	eventReconnect      = "reconnect"
	eventDropped        = "dropped"
	eventUnsubscribe    = "unsubscribe"
)

var allStates = []string{
	string(StateClosed),
	string(StateConnecting),
	string(StateOpen),
	string(StateAwaitingPong),
	string(StateFailed),
}

// stateMachine wraps the connection FSM. Transitions that do not apply in
// the current state are ignored; the transport fires events from several
// goroutines and only the ones that make sense take effect.
type stateMachine struct {
	fsm *fsm.FSM
	log zerolog.Logger
}

//nolint:gocritic // zerolog.Logger is passed by value
func newStateMachine(log zerolog.Logger) *stateMachine {
	sm := &stateMachine{log: log}
	sm.fsm = fsm.NewFSM(
		string(StateClosed),
		fsm.Events{
			{Name: eventSubscribe, Src: []string{string(StateClosed)}, Dst: string(StateConnecting)},
			{Name: eventOpened, Src: []string{string(StateConnecting)}, Dst: string(StateOpen)},
			{Name: eventIdleTimeout, Src: []string{string(StateOpen)}, Dst: string(StateAwaitingPong)},
			{Name: eventPong, Src: []string{string(StateAwaitingPong)}, Dst: string(StateOpen)},
			{Name: eventLivenessFailed, Src: []string{string(StateOpen), string(StateAwaitingPong)}, Dst: string(StateFailed)},
			{Name: eventReconnect, Src: []string{string(StateFailed)}, Dst: string(StateConnecting)},
			{Name: eventDropped, Src: []string{string(StateOpen), string(StateAwaitingPong)}, Dst: string(StateConnecting)},
			{Name: eventUnsubscribe, Src: allStates, Dst: string(StateClosed)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				metrics.StreamConnectionState.Set(ConnectionState(e.Dst).gaugeValue())
				sm.log.Debug().Str("from", e.Src).Str("to", e.Dst).Str("event", e.Event).Msg("connection state changed")
			},
		},
	)
	return sm
}

// fire applies event and reports whether the state changed.
func (sm *stateMachine) fire(event string) bool {
	err := sm.fsm.Event(context.Background(), event)
	if err == nil {
		return true
	}
	var noTransition fsm.NoTransitionError
	var invalid fsm.InvalidEventError
	switch {
	case errors.As(err, &noTransition):
	case errors.As(err, &invalid):
	default:
		sm.log.Warn().Err(err).Str("event", event).Msg("connection state transition failed")
	}
	return false
}

func (sm *stateMachine) current() ConnectionState {
	return ConnectionState(sm.fsm.Current())
}
