// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

import "fmt"

// SockType is the socket type of a slot, fixed for its lifetime once set by
// the control collaborator.
type SockType int

const (
	Unset SockType = iota
	Stream
	Seqpacket
	Dgram
)

func (t SockType) String() string {
	switch t {
	case Unset:
		return "unset"
	case Stream:
		return "stream"
	case Seqpacket:
		return "seqpacket"
	case Dgram:
		return "dgram"
	default:
		return fmt.Sprintf("SockType(%d)", int(t))
	}
}

// Mode is the bitset of halves of a socket that have not yet been shut down.
type Mode uint8

const (
	ModeR Mode = 1 << iota
	ModeW
)

func (m Mode) String() string {
	s := ""
	if m&ModeR != 0 {
		s += "R"
	}
	if m&ModeW != 0 {
		s += "W"
	}
	if s == "" {
		return "-"
	}
	return s
}

// Suspend is the tagged kind of a parked request. A slot carries at most
// one at a time; the payload of each variant lives in fixed Slot fields
// (suspEndpt/suspID/suspSize/suspBuf), not in the Suspend value
// itself, so illegal payload/kind combinations are unreachable.
type Suspend int

const (
	SuspendNone Suspend = iota
	SuspendRead
	SuspendWrite
	SuspendConnect
	SuspendAccept
)

func (s Suspend) String() string {
	switch s {
	case SuspendNone:
		return "none"
	case SuspendRead:
		return "read"
	case SuspendWrite:
		return "write"
	case SuspendConnect:
		return "connect"
	case SuspendAccept:
		return "accept"
	default:
		return fmt.Sprintf("Suspend(%d)", int(s))
	}
}

// SelectOp is a bit in the {READ, WRITE, ERR} select mask, optionally OR'd
// with SelectNotify to request a future readiness notification.
type SelectOp uint8

const (
	SelectRead  SelectOp = 1 << iota
	SelectWrite
	SelectErr
	SelectNotify
)

// Endpoint identifies the owner of a request: the caller that must receive
// a deferred task-reply when a parked operation completes. In this
// single-process rendition it is an opaque caller-supplied token (the
// collaborator harness hands out whatever it likes, typically a client
// handle id), not a real kernel endpoint number.
type Endpoint int

// RequestID is the cancel/resume correlation key supplied by the caller for
// a given request. Only meaningful together with the Endpoint that issued
// it.
type RequestID uint64

// Addr is a bound UNIX-domain address. Only Path participates in datagram
// address matching, compared up to PathMax; Bound distinguishes a zero Addr
// from a bound one.
type Addr struct {
	Bound bool
	Path  string
}

func (a Addr) String() string {
	if !a.Bound {
		return "<unbound>"
	}
	return a.Path
}
