// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

// Read is the dispatcher-facing read entry point (§4.5, §6): it calls
// PerformRead and, on ErrWouldBlock, either parks the request (blocking)
// or parks-then-immediately-cancels it (non-blocking), converting the
// result to EAGAIN. ErrWouldBlock returned from here to the caller means
// "don't reply yet" — the caller is expected to be the in-process harness,
// which holds on to (endpt, id) until a later Unsuspend/Cancel delivers
// the real reply.
func (t *Table) Read(minor int, endpt Endpoint, id RequestID, dst []byte, nonblock bool) (int, error) {
	if !t.valid(minor) {
		return 0, ErrNoSuchDevice
	}
	if t.slots[minor].state != Inuse {
		return 0, ErrInvalidArgument
	}

	n, err := t.PerformRead(minor, dst, false)
	if err != ErrWouldBlock {
		return n, err
	}

	t.ParkRead(minor, endpt, id, dst)
	if nonblock {
		t.Cancel(minor, endpt, id)
		return 0, ErrAgain
	}
	return 0, ErrWouldBlock
}

// Write is the write-side equivalent of Read.
func (t *Table) Write(minor int, endpt Endpoint, id RequestID, src []byte, nonblock bool) (int, error) {
	if !t.valid(minor) {
		return 0, ErrNoSuchDevice
	}
	if t.slots[minor].state != Inuse {
		return 0, ErrInvalidArgument
	}

	n, err := t.PerformWrite(minor, src, false)
	if err != ErrWouldBlock {
		return n, err
	}

	t.ParkWrite(minor, endpt, id, src)
	if nonblock {
		t.Cancel(minor, endpt, id)
		return 0, ErrAgain
	}
	return 0, ErrWouldBlock
}

// ParkConnectOrCancel parks a connect request and, if nonblock is set,
// immediately cancels it and reports EINPROGRESS — connect's own
// nonblocking conversion, distinct from the generic Cancel()-driven EAGAIN
// conversion used by Read/Write.
// The control collaborator calls this after linking the connecting pair
// but before the counterpart has accepted.
func (t *Table) ParkConnectOrCancel(minor int, endpt Endpoint, id RequestID, nonblock bool) error {
	t.ParkConnect(minor, endpt, id)
	if nonblock {
		t.Cancel(minor, endpt, id)
		return ErrInProgress
	}
	return ErrWouldBlock
}

// ParkAcceptOrCancel is the accept-side equivalent: non-blocking accept on
// an empty backlog converts to EAGAIN, not EINPROGRESS.
func (t *Table) ParkAcceptOrCancel(minor int, endpt Endpoint, id RequestID, nonblock bool) error {
	t.ParkAccept(minor, endpt, id)
	if nonblock {
		t.Cancel(minor, endpt, id)
		return ErrAgain
	}
	return ErrWouldBlock
}
