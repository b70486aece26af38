// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package harness is a synchronous dispatch harness for the
// character-device core: a handler-table-style dispatcher, collapsed from
// a worker pool reading a notification queue down to one synchronous call
// per client operation — required by the single-threaded-cooperative core.
package harness

import (
	"fmt"
	"log/slog"

	"github.com/josephrewald/minix/control"
	"github.com/josephrewald/minix/transport"
	"github.com/josephrewald/minix/uds"
)

// Harness owns one uds.Table and its control collaborator, and publishes a
// uds.Event after every call that changed state to an attached
// transport.Bus.
type Harness struct {
	Table   *uds.Table
	Control *control.Control
	Bus     *transport.Bus

	nextReq uint64
}

func New() *Harness {
	table := uds.NewTable()
	bus := &transport.Bus{}
	table.SetEventSink(bus.SendEvent)
	table.SetAncillaryReleaser(control.FDCloser{})

	return &Harness{
		Table:   table,
		Control: control.New(table),
		Bus:     bus,
	}
}

// Client is a convenience handle bundling a minor with the request-id
// counter its blocking calls use for cancel correlation.
type Client struct {
	h     *Harness
	Minor int
}

// OpenClient allocates a fresh socket and returns a handle to it. owner is
// an opaque caller identity, playing the role a kernel endpoint ID would
// in a real driver.
func (h *Harness) OpenClient(owner int) (*Client, error) {
	minor, err := h.Table.Open(uds.Endpoint(owner))
	if err != nil {
		return nil, err
	}
	return &Client{h: h, Minor: minor}, nil
}

func (c *Client) nextID() uds.RequestID {
	c.h.nextReq++
	return uds.RequestID(c.h.nextReq)
}

// Socket, Bind, Listen assign the client's type/address/backlog.
func (c *Client) Socket(typ uds.SockType) error { return c.h.Control.Socket(c.Minor, typ) }
func (c *Client) Bind(path string) error        { return c.h.Control.Bind(c.Minor, path) }
func (c *Client) Listen(backlog int) error      { return c.h.Control.Listen(c.Minor, backlog) }

// Connect links c to the listener bound at addr. If the pairing doesn't
// complete immediately (no Accept yet), it parks as CONNECT and Connect
// returns nil; the caller then runs the peer's Accept itself and checks
// IsConnected (this synchronous harness has no call that waits for the
// peer — see the demo scenarios).
func (c *Client) Connect(addr string, nonblock bool) error {
	err := c.h.Control.Connect(c.Minor, addr, nonblock)
	if err == uds.ErrWouldBlock {
		return nil // parked; caller polls via IsConnected
	}
	return err
}

// IsConnected reports whether c has a live peer (post-accept).
func (c *Client) IsConnected() bool {
	return c.h.Table.Peer(c.Minor) != uds.None && c.h.Table.Peer(c.h.Table.Peer(c.Minor)) == c.Minor
}

// Accept pre-opens a child slot (mirroring accept()'s pre-reservation of a
// table entry before the peer is known) and either completes the pairing
// immediately or parks it as ACCEPT.
func (c *Client) Accept(nonblock bool) (*Client, error) {
	child, err := c.h.Table.Open(uds.Endpoint(c.Minor))
	if err != nil {
		return nil, err
	}
	c.h.Table.SetChild(c.Minor, child)

	got, err := c.h.Control.Accept(c.Minor, child, nonblock)
	if err != nil {
		if err != uds.ErrWouldBlock {
			c.h.Table.Close(child)
		}
		return nil, err
	}
	return &Client{h: c.h, Minor: got}, nil
}

// Read performs a (possibly parking) read of len(dst) bytes.
func (c *Client) Read(dst []byte, nonblock bool) (int, error) {
	n, err := c.h.Table.Read(c.Minor, uds.Endpoint(c.Minor), c.nextID(), dst, nonblock)
	if err == uds.ErrWouldBlock {
		slog.Debug("read parked", "minor", c.Minor)
	}
	return n, err
}

// Write performs a (possibly parking) write of src.
func (c *Client) Write(src []byte, nonblock bool) (int, error) {
	n, err := c.h.Table.Write(c.Minor, uds.Endpoint(c.Minor), c.nextID(), src, nonblock)
	if err == uds.ErrWouldBlock {
		slog.Debug("write parked", "minor", c.Minor)
	}
	return n, err
}

// SendTo/RecvFrom/SendFDs wire datagram addressing and ancillary passing.
func (c *Client) SendTo(addr string) { c.h.Control.SendTo(c.Minor, addr) }
func (c *Client) RecvFrom() string   { return c.h.Control.RecvFrom(c.Minor) }
func (c *Client) SendFDs(fds []int)  { c.h.Control.SendFDs(c.Minor, fds) }

// Select probes/watches readiness on c per §4.7.
func (c *Client) Select(ops uds.SelectOp) (uds.SelectOp, error) {
	return c.h.Table.Select(c.Minor, ops, uds.Endpoint(c.Minor))
}

// Suspended reports the kind of request currently parked on c, if any.
func (c *Client) Suspended() uds.Suspend { return c.h.Table.Suspended(c.Minor) }

// Close releases c's slot.
func (c *Client) Close() error { return c.h.Table.Close(c.Minor) }

// PendingError retrieves and clears c's deferred SO_ERROR-style error.
func (c *Client) PendingError() error { return c.h.Control.GetSockError(c.Minor) }

func (c *Client) String() string { return fmt.Sprintf("client(minor=%d)", c.Minor) }
