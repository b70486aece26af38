// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package control implements the collaborator that uds.Table delegates
// bind/connect/listen/accept/shutdown/getsockopt to: a state machine
// (passive/connecting/connected/listening, bind-then-reserve, listener
// backlog, accept dequeue) adapted from real TCP dial/accept bookkeeping
// to uds.Table's in-memory address space.
package control

import (
	"fmt"
	"log/slog"

	"github.com/josephrewald/minix/uds"
)

// Control wires one uds.Table's bind/connect/listen/accept/shutdown
// surface. It holds no state of its own beyond the table: every fact about
// a socket (bound address, listening, peer) lives in the table rather than
// in a parallel bookkeeping structure.
type Control struct {
	table *uds.Table
}

func New(table *uds.Table) *Control {
	return &Control{table: table}
}

// Socket assigns minor's type. Mirrors the socket(2) half of
// socket+bind+connect/listen; in this in-process rendition, minor was
// already allocated by uds.Table.Open.
func (c *Control) Socket(minor int, typ uds.SockType) error {
	return c.table.SetType(minor, typ)
}

// Bind assigns minor the address path. EADDRINUSE if taken.
func (c *Control) Bind(minor int, path string) error {
	if err := c.table.Bind(minor, path); err != nil {
		return err
	}
	slog.Debug("bind", "minor", minor, "path", path)
	return nil
}

// Listen marks minor as accepting connections.
func (c *Control) Listen(minor int, backlog int) error {
	if err := c.table.SetListening(minor, backlog); err != nil {
		return err
	}
	slog.Debug("listen", "minor", minor, "backlog", backlog)
	return nil
}

// Connect resolves addr to a listening socket and links client to it as a
// pending connector (§3's "connecting pair"). If listener already has an
// ACCEPT parked (it called Accept before any connector arrived), the pair
// is wired immediately using listener's reserved child slot. Otherwise
// client is queued in listener's backlog and, unless nonblock, parks as
// CONNECT until a matching Accept completes the pairing.
func (c *Control) Connect(client int, addr string, nonblock bool) error {
	listener, ok := c.table.LookupByAddr(addr)
	if !ok {
		return uds.ErrConnRefused
	}

	if c.table.Suspended(listener) == uds.SuspendAccept {
		child := c.table.Child(listener)
		if err := c.table.SetType(child, c.table.Type(listener)); err != nil {
			return err
		}
		c.table.LinkConnected(client, child)
		c.table.SetChild(listener, uds.None)
		c.table.Unsuspend(listener)
		return nil
	}

	if err := c.table.LinkConnecting(client, listener); err != nil {
		return err
	}
	return c.table.ParkConnectOrCancel(client, uds.Endpoint(client), 0, nonblock)
}

// Accept dequeues the head of listener's backlog and completes the
// connect/accept pairing by wiring it to child (a slot the caller has
// already opened and pre-reserved via uds.Table.SetChild), reviving the
// client's parked CONNECT. If the backlog is empty, child stays reserved
// and the request parks as ACCEPT until Connect supplies a new client.
func (c *Control) Accept(listener, child int, nonblock bool) (int, error) {
	clientMinor, ok := c.table.PopBacklog(listener)
	if !ok {
		c.table.SetChild(listener, child)
		err := c.table.ParkAcceptOrCancel(listener, uds.Endpoint(listener), 0, nonblock)
		return 0, err
	}
	if err := c.table.SetType(child, c.table.Type(listener)); err != nil {
		return 0, err
	}
	c.table.LinkConnected(clientMinor, child)
	c.table.Unsuspend(clientMinor)
	return child, nil
}

// Shutdown clears the requested halves of minor.
func (c *Control) Shutdown(minor int, r, w bool) error {
	return c.table.Shutdown(minor, r, w)
}

// GetSockError retrieves and clears minor's deferred SO_ERROR-style
// pending error (populated by a peer's reset).
func (c *Control) GetSockError(minor int) error {
	return c.table.PendingError(minor)
}

// SendTo records the destination address for a DGRAM socket's next write.
func (c *Control) SendTo(minor int, addr string) {
	c.table.SetSendTarget(minor, addr)
}

// RecvFrom reports the address the most recent datagram arrived from.
func (c *Control) RecvFrom(minor int) string {
	return c.table.SourceAddr(minor).String()
}

// SendFDs stages ancillary file descriptors for minor's next send.
func (c *Control) SendFDs(minor int, fds []int) {
	c.table.StageAncillary(minor, fds)
}

// FDCloser is the uds.AncillaryReleaser the harness installs with
// table.SetAncillaryReleaser(control.FDCloser{}). When a slot closes
// without ever sending its staged FDs, Release logs them at debug level;
// it does not close any OS descriptors.
type FDCloser struct{}

func (FDCloser) Release(fds []int) {
	slog.Debug("releasing unsent ancillary descriptors", "count", len(fds), "fds", fmt.Sprint(fds))
}
