// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

import (
	"log/slog"
	"strconv"
)

// SlotState is FREE or INUSE.
type SlotState int

const (
	Free SlotState = iota
	Inuse
)

// Slot is one entry of the socket table, identified by its index (the
// minor).
type Slot struct {
	state SlotState
	owner Endpoint
	typ   SockType
	mode  Mode

	ring *ring

	peer        int // None, or index of connected/listening peer
	listening   bool
	backlog     [SoMaxConn]int // slot indices awaiting accept; None when empty
	backlogSize int            // capacity clamp set by Listen, <= SoMaxConn
	child       int            // slot pre-reserved by accept for a pending connector

	addr, source, target Addr

	pendingReset bool // deferred ECONNRESET to deliver once on next read/write

	ancillary Ancillary

	suspended Suspend
	suspEndpt Endpoint
	suspID    RequestID
	suspSize  int
	suspBuf   []byte // dst for a parked READ, src for a parked WRITE

	selEndpt Endpoint
	selOps   SelectOp
}

// LogValue lets a Slot print its own state in a structured log record
// instead of its raw fields.
func (s *Slot) LogValue() slog.Value {
	if s.state == Free {
		return slog.StringValue("free")
	}
	return slog.GroupValue(
		slog.String("type", s.typ.String()),
		slog.String("mode", s.mode.String()),
		slog.Int("peer", s.peer),
		slog.Bool("listening", s.listening),
		slog.Int("size", s.ring.size),
		slog.String("suspended", s.suspended.String()),
	)
}

// Table is the fixed-size socket table: the single piece of shared state in
// the core. It must be driven from exactly one goroutine at a time; it
// performs no internal synchronization, matching the single-threaded
// cooperative model spelled out for the core.
type Table struct {
	slots    [N]Slot
	exitLeft int

	onEvent  func(*Event)
	releaser AncillaryReleaser
	copier   Copier
}

// NewTable returns a Table with every slot FREE, as if freshly initialised
// at startup (MINIX's uds_init zeroing uds_fd_table).
func NewTable() *Table {
	t := &Table{releaser: noopReleaser{}, copier: stdCopier{}}
	for i := range t.slots {
		t.zero(i)
	}
	return t
}

// SetCopier installs the cross-endpoint copy primitive every slot's ring
// uses to move bytes in PerformRead/PerformWrite. The default is a plain
// in-process byte copy; a cross-process driver would install one that
// copies through a real endpoint/grant pair instead.
func (t *Table) SetCopier(c Copier) {
	if c == nil {
		c = stdCopier{}
	}
	t.copier = c
	for i := range t.slots {
		if t.slots[i].ring != nil {
			t.slots[i].ring.copier = c
		}
	}
}

// SetEventSink installs a callback invoked after every state-changing
// operation. It is optional; a nil sink (the default) means events are
// simply not raised. Kept as a plain function field rather than an
// interface-typed dependency on package transport, so the core has no
// import-time dependency on the harness/transport layer that consumes its
// events.
func (t *Table) SetEventSink(fn func(*Event)) { t.onEvent = fn }

// SetAncillaryReleaser installs the collaborator responsible for closing
// any descriptors still staged on a slot's ancillary data when that slot
// closes without ever sending them.
func (t *Table) SetAncillaryReleaser(r AncillaryReleaser) {
	if r == nil {
		r = noopReleaser{}
	}
	t.releaser = r
}

func (t *Table) emit(kind EventKind, minor int) *Event {
	ev := newEvent(kind, minor)
	if t.onEvent != nil {
		t.onEvent(ev)
	}
	return ev
}

func (t *Table) zero(i int) {
	s := &t.slots[i]
	*s = Slot{}
	s.state = Free
	s.peer = None
	s.child = None
	s.mode = ModeR | ModeW
	s.typ = Unset
	s.suspended = SuspendNone
	for j := range s.backlog {
		s.backlog[j] = None
	}
}

// Slot returns a read-only view of a slot for callers (control, harness,
// stats) that need to inspect but not mutate core state directly.
func (t *Table) Slot(minor int) (Slot, bool) {
	if minor <= 0 || minor >= N || t.slots[minor].state != Inuse {
		return Slot{}, false
	}
	cp := t.slots[minor]
	return cp, true
}

func (t *Table) valid(minor int) bool {
	return minor > 0 && minor < N
}

// Open claims the first FREE slot in [1, N), assigns it a ring buffer, and
// resets all fields to their defaults. It returns ErrNoFile if the table is
// full.
func (t *Table) Open(owner Endpoint) (int, error) {
	for i := 1; i < N; i++ {
		if t.slots[i].state == Free {
			s := &t.slots[i]
			s.state = Inuse
			s.owner = owner
			s.typ = Unset
			s.mode = ModeR | ModeW
			s.peer = None
			s.child = None
			s.ring = newRing()
			if t.copier != nil {
				s.ring.copier = t.copier
			}
			s.ancillary = newAncillary()
			s.suspended = SuspendNone
			s.backlogSize = SoMaxConn
			for j := range s.backlog {
				s.backlog[j] = None
			}
			t.emit(EventOpen, i)
			return i, nil
		}
	}
	return 0, ErrNoFile
}

// removeFromBacklog removes minor from listener's backlog, if present.
func (t *Table) removeFromBacklog(listener, minor int) {
	s := &t.slots[listener]
	for i, v := range s.backlog {
		if v == minor {
			copy(s.backlog[i:], s.backlog[i+1:])
			s.backlog[len(s.backlog)-1] = None
			return
		}
	}
}

// Close tears down a slot per §4.6: detach from peer/backlog/listening
// graph, release staged ancillary descriptors, release the ring, and
// return the slot to FREE. It is idempotent in the sense that closing an
// already-FREE slot is an error that mutates nothing.
func (t *Table) Close(minor int) error {
	if !t.valid(minor) {
		return ErrNoSuchDevice
	}
	s := &t.slots[minor]
	if s.state != Inuse {
		return ErrInvalidArgument
	}

	peer := s.peer
	switch {
	case peer != None && t.slots[peer].peer == None:
		// minor is a pending connector attached to a listener.
		if !t.slots[peer].listening {
			invariant("close: peer %d of pending connector %d is not listening", peer, minor)
		}
		t.removeFromBacklog(peer, minor)

	case peer != None && t.slots[peer].peer == minor:
		// fully connected pair
		t.reset(peer)

	case peer == None && s.listening:
		for _, c := range s.backlog {
			if c != None {
				t.reset(c)
			}
		}
	}

	if s.ancillary.NFiledes > 0 {
		t.releaser.Release(s.ancillary.Fds[:s.ancillary.NFiledes])
		s.ancillary.clear()
	}

	t.emit(EventClose, minor)
	t.zero(minor)

	if t.exitLeft > 0 {
		t.exitLeft--
	}
	return nil
}

// reset tears down the peer side of a connection per §4.6: clears peer,
// sets the one-shot ECONNRESET flag, revives any suspension, and fires a
// readiness notification for any watched ops.
func (t *Table) reset(minor int) {
	s := &t.slots[minor]
	s.peer = None
	s.pendingReset = true

	if s.suspended != SuspendNone {
		t.reviveWithReset(minor)
	}

	if s.selOps != 0 {
		ops := t.readiness(minor, s.selOps)
		if ops != 0 {
			t.notifySelect(minor, ops)
		}
	}

	t.emit(EventReset, minor)
}

// reviveWithReset completes a parked request on a slot whose peer just
// reset, delivering ECONNRESET (read/write) or the connect/accept error.
func (t *Table) reviveWithReset(minor int) {
	s := &t.slots[minor]
	kind := s.suspended
	s.suspended = SuspendNone
	s.suspBuf = nil
	s.pendingReset = false // delivered by this reply

	switch kind {
	case SuspendRead, SuspendWrite:
		t.reply(minor, 0, ErrConnectionReset)
	case SuspendConnect, SuspendAccept:
		t.reply(minor, 0, ErrConnectionReset)
	default:
		invariant("reviveWithReset: unknown suspension kind %v", kind)
	}
}

// reply is the dispatcher's task-completion hook: deliver (result, err) to
// the endpoint that parked the request. It raises a wake event carrying
// the reply in its "result" and "errno" fields; event-sink subscribers
// read the reply value from there.
func (t *Table) reply(minor int, n int, err error) {
	ev := newEvent(EventWake, minor)
	ev.Set("result", strconv.Itoa(n))
	if err != nil {
		ev.Set("errno", err.Error())
	}
	if t.onEvent != nil {
		t.onEvent(ev)
	}
}

// BeginShutdown counts INUSE slots into exitLeft: the process should exit
// once exitLeft reaches zero, decremented by each subsequent Close.
func (t *Table) BeginShutdown() (exitLeft int) {
	n := 0
	for i := 1; i < N; i++ {
		if t.slots[i].state == Inuse {
			n++
		}
	}
	t.exitLeft = n
	return n
}

// ShutdownDone reports whether every INUSE slot present at BeginShutdown
// time has since closed.
func (t *Table) ShutdownDone() bool { return t.exitLeft == 0 }
