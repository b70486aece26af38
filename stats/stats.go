// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package stats reports a point-in-time snapshot of socket table
// utilization: a small struct of string-keyed figures handed out to
// callers, taken synchronously on demand rather than off a background
// ticker polling shared state every second. A ticker goroutine reading
// uds.Table fields
// concurrently with the single-threaded core would itself violate the
// core's single-writer invariant, so Take is a plain function call made
// between dispatched requests (cmd/stat calls it once), never a goroutine.
package stats

import (
	"fmt"

	"github.com/josephrewald/minix/uds"
)

type Snapshot struct {
	Capacity int
	InUse    int
	Free     int

	BytesBuffered int
	BytesCapacity int

	Listening int
	Connected int
}

func (s Snapshot) String() string {
	return fmt.Sprintf("slots %d/%d used, bytes %d/%d buffered, %d listening, %d connected",
		s.InUse, s.Capacity, s.BytesBuffered, s.BytesCapacity, s.Listening, s.Connected)
}

// Take walks every slot of table and tallies utilization figures. It never
// mutates the table and is safe to call between dispatched requests from
// the same goroutine that drives the table.
func Take(table *uds.Table) Snapshot {
	snap := Snapshot{Capacity: uds.N - 1}
	for i := 1; i < uds.N; i++ {
		if _, ok := table.Slot(i); !ok {
			snap.Free++
			continue
		}
		snap.InUse++
		snap.BytesCapacity += uds.BufCap
		if table.IsListening(i) {
			snap.Listening++
		}
		if table.Peer(i) != uds.None {
			snap.Connected++
		}
		snap.BytesBuffered += table.BufferedBytes(i)
	}
	return snap
}
