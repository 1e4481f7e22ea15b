// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package cachevalidity decides whether the locally persisted static dataset
(stops and routes) is still current, and refreshes it when it is not.

The Oracle compares the stored CacheVersionRecord and the stop count against
a version derived from today's date in a configured timezone. The cache is
valid only when a record exists, at least one stop is stored, and the
versions match exactly. On an invalid result the Oracle writes the latest
version straight away; the Refresher then fetches and stores the dataset,
and deletes that version record again if anything fails.

Stores:
  - MemoryStore: process-local, for tests and CACHE_BACKEND=memory
  - BadgerStore: BadgerDB, keys static:version and static:rows:<kind>:<id>
  - RedisStore: a version key plus one hash per row kind

Concurrent checks from several processes are tolerated: every write is
last-write-wins at the key level.
*/
package cachevalidity
