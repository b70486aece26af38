// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

// Select computes the immediately-satisfiable subset of ops for minor
// (§4.7). If SelectNotify is set in ops, the remaining (unsatisfied) bits
// are recorded on the slot so that a future data-path event can notify
// endpt via SelectReply.
func (t *Table) Select(minor int, ops SelectOp, endpt Endpoint) (SelectOp, error) {
	if !t.valid(minor) {
		return 0, ErrNoSuchDevice
	}
	s := &t.slots[minor]
	if s.state != Inuse {
		return 0, ErrInvalidArgument
	}

	ready := t.readiness(minor, ops)

	if ops&SelectNotify != 0 {
		remaining := (ops &^ SelectNotify) &^ ready
		if remaining != 0 {
			s.selEndpt = endpt
			s.selOps |= remaining
		}
	}
	return ready, nil
}

// readiness is the pure computation behind Select, also reused by reset
// to decide whether a watched condition just became true.
func (t *Table) readiness(minor int, ops SelectOp) SelectOp {
	s := &t.slots[minor]
	var ready SelectOp

	if ops&SelectRead != 0 {
		n, err := t.PerformRead(minor, make([]byte, 1), true)
		switch {
		case err == nil && n > 0:
			ready |= SelectRead
		case s.listening:
			if backlogHasWaiting(s) {
				ready |= SelectRead
			}
		case err != nil && err != ErrWouldBlock:
			ready |= SelectRead
		}
	}

	if ops&SelectWrite != 0 {
		n, err := t.PerformWrite(minor, []byte{0}, true)
		if err != ErrWouldBlock && (err != nil || n != 0) {
			ready |= SelectWrite
		}
	}

	return ready
}

func backlogHasWaiting(s *Slot) bool {
	for _, c := range s.backlog {
		if c != None {
			return true
		}
	}
	return false
}

// notifySelect fires a readiness notification for minor's recorded watch,
// clearing the bits it reports, and raises an observability event.
func (t *Table) notifySelect(minor int, ops SelectOp) {
	s := &t.slots[minor]
	if s.selOps == 0 {
		return
	}
	reported := s.selOps & ops
	if reported == 0 {
		return
	}
	s.selOps &^= reported

	ev := newEvent(EventWake, minor)
	ev.Set("select_ops", selectOpsString(reported))
	if t.onEvent != nil {
		t.onEvent(ev)
	}
	_ = s.selEndpt
}

func selectOpsString(ops SelectOp) string {
	s := ""
	if ops&SelectRead != 0 {
		s += "R"
	}
	if ops&SelectWrite != 0 {
		s += "W"
	}
	if ops&SelectErr != 0 {
		s += "E"
	}
	if s == "" {
		return "-"
	}
	return s
}
