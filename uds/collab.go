// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

import "strconv"

// This file is the seam through which the core exposes the hooks it needs
// (suspension types, backlog access, peer linking) without defining its
// own wire format: every mutator here is meant to be called only by the
// control collaborator (package control in this repository), never by an
// application-facing entry point directly. The core itself never
// decodes bind/connect/listen/accept/shutdown — it just gives the
// collaborator a safe way to mutate the table's peer/backlog/address
// graph, and to trigger the suspension machinery on its behalf.

// SetType fixes a slot's socket type. Only legal once, before any other
// collaborator operation on the slot (it has no effect if the type is
// already set, matching a bind/connect/listen implying the first socket()
// call already picked a type).
func (t *Table) SetType(minor int, typ SockType) error {
	if !t.valid(minor) {
		return ErrNoSuchDevice
	}
	s := &t.slots[minor]
	if s.state != Inuse {
		return ErrInvalidArgument
	}
	if s.typ == Unset {
		s.typ = typ
	}
	return nil
}

// Type reports minor's socket type, or Unset if it hasn't been assigned
// one yet.
func (t *Table) Type(minor int) SockType {
	if !t.valid(minor) {
		return Unset
	}
	return t.slots[minor].typ
}

// Bind records addr on minor. EADDRINUSE if another INUSE slot already
// bound the same path; EINVAL if minor is already bound or connected.
func (t *Table) Bind(minor int, path string) error {
	if !t.valid(minor) {
		return ErrNoSuchDevice
	}
	s := &t.slots[minor]
	if s.state != Inuse {
		return ErrInvalidArgument
	}
	if s.addr.Bound || s.peer != None {
		return ErrInvalidArgument
	}
	for i := 1; i < N; i++ {
		if i != minor && t.slots[i].state == Inuse && t.slots[i].addr.Bound && t.slots[i].addr.Path == path {
			return ErrAddrInUse
		}
	}
	s.addr = Addr{Bound: true, Path: path}
	ev := newEvent(EventBind, minor)
	ev.Set("path", path)
	if t.onEvent != nil {
		t.onEvent(ev)
	}
	return nil
}

// Addr returns a slot's bound address.
func (t *Table) Addr(minor int) Addr {
	if !t.valid(minor) {
		return Addr{}
	}
	return t.slots[minor].addr
}

// LookupByAddr finds the INUSE, listening slot bound to path. Used by
// Connect to resolve the peer. Not a core concern by itself (it's address
// resolution, delegated to the collaborator), but it walks core state so
// it lives here rather than duplicating the table scan in package control.
func (t *Table) LookupByAddr(path string) (int, bool) {
	for i := 1; i < N; i++ {
		s := &t.slots[i]
		if s.state == Inuse && s.listening && s.addr.Bound && s.addr.Path == path {
			return i, true
		}
	}
	return 0, false
}

// SetListening marks minor as a listener with the given backlog capacity,
// clamped to [1, SoMaxConn] the way a real listen(2) clamps an oversized
// backlog argument.
func (t *Table) SetListening(minor int, backlog int) error {
	if !t.valid(minor) {
		return ErrNoSuchDevice
	}
	s := &t.slots[minor]
	if s.state != Inuse || !s.addr.Bound {
		return ErrInvalidArgument
	}
	if backlog < 1 {
		backlog = 1
	}
	if backlog > SoMaxConn {
		backlog = SoMaxConn
	}
	s.listening = true
	s.backlogSize = backlog
	t.emit(EventListen, minor)
	return nil
}

func (t *Table) IsListening(minor int) bool {
	return t.valid(minor) && t.slots[minor].state == Inuse && t.slots[minor].listening
}

// BacklogCount reports how many connectors are currently queued.
func (t *Table) BacklogCount(minor int) int {
	n := 0
	for _, c := range t.slots[minor].backlog {
		if c != None {
			n++
		}
	}
	return n
}

// LinkConnecting attaches client to listener's backlog, forming the
// connecting pair described in §3: slots[client].peer == listener,
// slots[listener].peer == None, slots[listener].listening, and client
// appears in slots[listener].backlog. Returns ErrConnRefused if the
// backlog is at capacity.
func (t *Table) LinkConnecting(client, listener int) error {
	if !t.valid(client) || !t.valid(listener) {
		return ErrNoSuchDevice
	}
	ls := &t.slots[listener]
	if !ls.listening {
		return ErrConnRefused
	}
	if t.BacklogCount(listener) >= ls.backlogSize {
		return ErrConnRefused
	}
	for i, v := range ls.backlog {
		if v == None {
			ls.backlog[i] = client
			break
		}
	}
	t.slots[client].peer = listener
	ev := newEvent(EventConnect, client)
	ev.Set("listener", strconv.Itoa(listener))
	if t.onEvent != nil {
		t.onEvent(ev)
	}
	return nil
}

// PopBacklog removes and returns the head of listener's backlog (FIFO),
// for Accept.
func (t *Table) PopBacklog(listener int) (int, bool) {
	s := &t.slots[listener]
	for i, c := range s.backlog {
		if c != None {
			copy(s.backlog[i:], s.backlog[i+1:])
			s.backlog[len(s.backlog)-1] = None
			return c, true
		}
	}
	return 0, false
}

// LinkConnected completes a connecting pair into a connected pair:
// slots[a].peer == b && slots[b].peer == a.
func (t *Table) LinkConnected(a, b int) {
	t.slots[a].peer = b
	t.slots[b].peer = a
	ev := newEvent(EventAccept, b)
	ev.Set("peer", strconv.Itoa(a))
	if t.onEvent != nil {
		t.onEvent(ev)
	}
}

// SetChild records the slot accept() pre-reserved for a pending connector,
// undone automatically by Cancel if the accept is interrupted before it
// completes.
func (t *Table) SetChild(listener, child int) {
	t.slots[listener].child = child
}

func (t *Table) Child(listener int) int {
	return t.slots[listener].child
}

// SetSendTarget records the datagram destination address for a DGRAM
// socket's next write.
func (t *Table) SetSendTarget(minor int, path string) {
	t.slots[minor].target = Addr{Bound: true, Path: path}
}

// SourceAddr returns the address a DGRAM socket's most recent read arrived
// from (populated by PerformWrite, step 11 of §4.4).
func (t *Table) SourceAddr(minor int) Addr {
	return t.slots[minor].source
}

// Peer returns minor's peer index, or None.
func (t *Table) Peer(minor int) int {
	if !t.valid(minor) {
		return None
	}
	return t.slots[minor].peer
}

// Shutdown clears the R and/or W bits of minor's mode.
func (t *Table) Shutdown(minor int, r, w bool) error {
	if !t.valid(minor) {
		return ErrNoSuchDevice
	}
	s := &t.slots[minor]
	if s.state != Inuse {
		return ErrInvalidArgument
	}
	if r {
		s.mode &^= ModeR
	}
	if w {
		s.mode &^= ModeW
	}
	return nil
}

// PendingError reports and, if present, clears the one-shot deferred
// error flag set by reset (SO_ERROR-style retrieval for getsockopt).
func (t *Table) PendingError(minor int) error {
	if !t.valid(minor) {
		return nil
	}
	s := &t.slots[minor]
	if s.pendingReset {
		s.pendingReset = false
		return ErrConnectionReset
	}
	return nil
}

// Suspended reports the kind of suspension currently parked on minor, if
// any.
func (t *Table) Suspended(minor int) Suspend {
	if !t.valid(minor) || t.slots[minor].state != Inuse {
		return SuspendNone
	}
	return t.slots[minor].suspended
}

// BufferedBytes reports how many bytes currently sit in minor's ring
// buffer, for the stats package's snapshot.
func (t *Table) BufferedBytes(minor int) int {
	if !t.valid(minor) || t.slots[minor].state != Inuse {
		return 0
	}
	return t.slots[minor].ring.size
}

// StageAncillary records fds to be delivered with minor's next successful
// send.
func (t *Table) StageAncillary(minor int, fds []int) {
	t.slots[minor].ancillary.Stage(fds)
}
