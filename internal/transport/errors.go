// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package transport

import (
	"errors"
	"fmt"
	"time"
)

// ErrLivenessFailure is reported through the error handler when a
// connection stops answering pings.
var ErrLivenessFailure = errors.New("stream liveness failure")

// LivenessError describes one liveness failure.
type LivenessError struct {
	// Pings is the number of unanswered pings.
	Pings int
	// Silence is the time since the last inbound frame.
	Silence time.Duration
}

func (e *LivenessError) Error() string {
	return fmt.Sprintf("%v: %d pings unanswered after %s of silence", ErrLivenessFailure, e.Pings, e.Silence.Round(time.Millisecond))
}

// Is lets errors.Is(err, ErrLivenessFailure) match.
func (e *LivenessError) Is(target error) bool {
	return target == ErrLivenessFailure
}
