// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

// park records a parked operation on minor (§4.5). The dispatcher-facing
// entry points call this after their perform_* call returns ErrWouldBlock.
func (t *Table) park(minor int, kind Suspend, endpt Endpoint, id RequestID, buf []byte) {
	s := &t.slots[minor]
	if s.suspended != SuspendNone {
		invariant("park: slot %d already has a suspension of kind %v", minor, s.suspended)
	}
	s.suspended = kind
	s.suspEndpt = endpt
	s.suspID = id
	s.suspSize = len(buf)
	s.suspBuf = buf
	t.emit(EventSuspend, minor)
}

// reviveRead replays a parked read. If it still blocks, the slot stays
// parked; otherwise the result is delivered via the task-reply hook and
// the suspension is cleared.
func (t *Table) reviveRead(minor int) {
	s := &t.slots[minor]
	if s.suspended != SuspendRead {
		invariant("reviveRead: slot %d suspension is %v, not read", minor, s.suspended)
	}
	n, err := t.PerformRead(minor, s.suspBuf[:s.suspSize], false)
	if err == ErrWouldBlock {
		return
	}
	s.suspended = SuspendNone
	s.suspBuf = nil
	t.reply(minor, n, normalizeOK(err))
}

// reviveWrite is the write-side equivalent of reviveRead.
func (t *Table) reviveWrite(minor int) {
	s := &t.slots[minor]
	if s.suspended != SuspendWrite {
		invariant("reviveWrite: slot %d suspension is %v, not write", minor, s.suspended)
	}
	n, err := t.PerformWrite(minor, s.suspBuf[:s.suspSize], false)
	if err == ErrWouldBlock {
		return
	}
	s.suspended = SuspendNone
	s.suspBuf = nil
	t.reply(minor, n, normalizeOK(err))
}

func normalizeOK(err error) error {
	if err == ErrWouldBlock {
		return nil
	}
	return err
}

// ParkRead records a blocking read that PerformRead reported would block.
func (t *Table) ParkRead(minor int, endpt Endpoint, id RequestID, dst []byte) {
	t.park(minor, SuspendRead, endpt, id, dst)
}

// ParkWrite records a blocking write that PerformWrite reported would
// block.
func (t *Table) ParkWrite(minor int, endpt Endpoint, id RequestID, src []byte) {
	t.park(minor, SuspendWrite, endpt, id, src)
}

// ParkConnect and ParkAccept record the control collaborator's pending
// connect/accept operations so the core can revive them once the
// collaborator calls Unsuspend after wiring the pair.
func (t *Table) ParkConnect(minor int, endpt Endpoint, id RequestID) {
	t.park(minor, SuspendConnect, endpt, id, nil)
}

func (t *Table) ParkAccept(minor int, endpt Endpoint, id RequestID) {
	t.park(minor, SuspendAccept, endpt, id, nil)
}

// Unsuspend replays the parked operation on minor (§4.5's unsuspend
// table). For CONNECT/ACCEPT the control collaborator has already wired
// the pair by the time it calls this; the core just delivers any deferred
// error and clears the suspension.
func (t *Table) Unsuspend(minor int) {
	if !t.valid(minor) {
		return
	}
	s := &t.slots[minor]
	switch s.suspended {
	case SuspendNone:
		return
	case SuspendRead:
		t.reviveRead(minor)
	case SuspendWrite:
		t.reviveWrite(minor)
	case SuspendConnect, SuspendAccept:
		var err error
		if s.pendingReset {
			err = ErrConnectionReset
			s.pendingReset = false
		}
		s.suspended = SuspendNone
		t.reply(minor, 0, err)
	default:
		invariant("unsuspend: unknown suspension kind %v on slot %d", s.suspended, minor)
	}
}

// Cancel matches an in-flight request by (endpt, id); a mismatch is a
// benign no-op (a race between cancel and natural completion). On match,
// any ACCEPT reservation this slot held on another slot is undone, the
// suspension is cleared, and EINTR is the reply.
func (t *Table) Cancel(minor int, endpt Endpoint, id RequestID) error {
	if !t.valid(minor) {
		return ErrNoSuchDevice
	}
	s := &t.slots[minor]
	if s.suspended == SuspendNone || s.suspEndpt != endpt || s.suspID != id {
		return nil // benign ignore
	}

	if s.suspended == SuspendAccept {
		s.child = None
		for i := 1; i < N; i++ {
			if t.slots[i].child == minor {
				t.slots[i].child = None
			}
		}
	}
	// CONNECT: left to continue asynchronously; nothing to undo here, the
	// connection proceeds and only this call's wait unblocks.

	s.suspended = SuspendNone
	s.suspBuf = nil
	return ErrInterrupted
}
