// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

// Build-time constants. These are never configurable at runtime — fixed
// the way a driver fixes table sizes and buffer capacities as preprocessor
// constants rather than tunables.
const (
	// N is the size of the socket table. Slot 0 is reserved for the device
	// itself; usable minors are [1, N).
	N = 256

	// BufCap is the capacity in bytes of each slot's ring buffer.
	BufCap = 4096

	// SoMaxConn is the maximum number of pending connectors a listening
	// slot can queue in its backlog.
	SoMaxConn = 128

	// PathMax bounds the length of a bound address used for datagram
	// address matching.
	PathMax = 108

	// OpenMax is the number of ancillary file descriptor slots a socket
	// can stage for its next send.
	OpenMax = 16
)

// None is the sentinel "no slot" index, used for peer, child and backlog
// entries. It intentionally is not a valid table index (valid minors start
// at 1). Because it is -1 rather than the zero value of int, Table sets
// these fields to None explicitly when it zeroes or opens a slot.
const None = -1
