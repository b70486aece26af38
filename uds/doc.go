// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package uds implements the core of a UNIX-domain-socket IPC engine: a
// fixed-size socket table, per-socket ring buffers, connection-oriented and
// connectionless data paths, and the suspension/wakeup and select/readiness
// machinery that ties them together.
//
// The package is strictly single-threaded cooperative, mirroring MINIX's
// character-device socket driver: a *Table must only ever be driven from one
// goroutine at a time. Suspension is represented as a plain record on a slot,
// never as a parked goroutine, so replay is just a second call into the same
// data-path function with the arguments recorded at park time.
package uds
