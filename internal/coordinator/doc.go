// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

// Package coordinator wires the stream transport to the vehicle registry.
//
// The Coordinator is the registry's single writer. Batches arriving from the
// transport are merged one at a time, and each changed registry is published
// by swapping an atomic pointer. Readers call GetAll and get an immutable
// snapshot without taking a lock.
//
// Liveness failures reported by the transport are kept for Status so an
// operator can see that the stream is reconnecting.
package coordinator
