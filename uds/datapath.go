// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

// PerformRead implements §4.3. pretend=true reports what would happen
// without mutating state or moving bytes; it is how Select probes
// readiness and must never have a side effect.
func (t *Table) PerformRead(minor int, dst []byte, pretend bool) (int, error) {
	n := len(dst)
	if n == 0 {
		return 0, nil
	}

	s := &t.slots[minor]
	if s.mode&ModeR == 0 {
		return 0, ErrBrokenPipe
	}

	if s.ring.size == 0 {
		if s.peer == None {
			switch s.typ {
			case Stream, Seqpacket:
				if s.pendingReset {
					if !pretend {
						s.pendingReset = false
					}
					return 0, ErrConnectionReset
				}
				return 0, ErrNotConnected
			case Dgram:
				// fall through to the would-block/park decision below.
			}
		} else {
			if t.slots[s.peer].suspended == SuspendWrite {
				invariant("perform_read: writer %d suspended while reader %d sees an empty buffer", s.peer, minor)
			}
			if t.slots[s.peer].mode&ModeW == 0 {
				return 0, nil // EOF: peer shut down its write half
			}
		}
		return 0, ErrWouldBlock
	}

	if n > s.ring.size {
		n = s.ring.size
	}
	if pretend {
		return n, nil
	}

	n = s.ring.drain(dst, n)

	if s.peer != None {
		peer := s.peer
		if t.slots[peer].suspended == SuspendWrite {
			t.reviveWrite(peer)
		}
		t.notifySelect(peer, SelectWrite)
	}

	return n, nil
}

// PerformWrite implements §4.4.
func (t *Table) PerformWrite(minor int, src []byte, pretend bool) (int, error) {
	n := len(src)
	if n == 0 {
		return 0, nil
	}

	s := &t.slots[minor]
	if s.mode&ModeW == 0 {
		return 0, ErrBrokenPipe
	}
	if n > BufCap && s.typ != Stream {
		return 0, ErrMessageSize
	}

	var target int
	switch s.typ {
	case Stream, Seqpacket:
		target = s.peer
		if target == None {
			if s.pendingReset {
				if !pretend {
					s.pendingReset = false
				}
				return 0, ErrConnectionReset
			}
			return 0, ErrNotConnected
		}
		if t.slots[target].peer == None {
			// peer is a listener we're still waiting to be accepted by.
			return 0, ErrWouldBlock
		}
	case Dgram:
		want := s.target.Path
		if len(want) > PathMax {
			want = want[:PathMax]
		}
		found := None
		for i := 1; i < N; i++ {
			c := &t.slots[i]
			if c.state != Inuse || c.typ != Dgram || !c.addr.Bound {
				continue
			}
			have := c.addr.Path
			if len(have) > PathMax {
				have = have[:PathMax]
			}
			if have == want {
				found = i
				break
			}
		}
		if found == None {
			return 0, ErrNoEntry
		}
		target = found
	default:
		return 0, ErrInvalidArgument
	}

	ts := &t.slots[target]
	if ts.mode&ModeR == 0 {
		return 0, ErrBrokenPipe
	}

	if s.typ == Dgram && ts.ring.size > 0 {
		// Drop-newest: a datagram is already queued for this destination.
		// Fidelity with the reference implementation, not the more common
		// drop-oldest/queue-multiple policy; see the design notes.
		return n, nil
	}

	if ts.ring.size == BufCap || (s.typ == Seqpacket && ts.ring.size > 0) {
		if !pretend && t.slots[target].suspended == SuspendRead {
			invariant("perform_write: target %d suspended on read while full, writer %d", target, minor)
		}
		return 0, ErrWouldBlock
	}

	free := BufCap - ts.ring.size
	if n > free {
		n = free
	}
	if pretend {
		return n, nil
	}

	n = ts.ring.fill(src, n)

	if s.typ == Dgram {
		ts.source = s.addr
	}

	if ts.suspended == SuspendRead {
		t.reviveRead(target)
	}
	t.notifySelect(target, SelectRead)

	return n, nil
}
