// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package scenario runs a fixed set of end-to-end socket lifecycle
// scenarios against a harness.Harness, for use by both the demo CLI (which
// reports pass/fail) and the tail CLI (which uses a scenario run purely
// to generate lifecycle traffic to stream).
package scenario

import (
	"bytes"
	"fmt"

	"github.com/josephrewald/minix/harness"
	"github.com/josephrewald/minix/uds"
)

type Result struct {
	Name string
	Err  error
}

func (r Result) String() string {
	if r.Err == nil {
		return fmt.Sprintf("PASS  %s", r.Name)
	}
	return fmt.Sprintf("FAIL  %s: %v", r.Name, r.Err)
}

type scenario struct {
	name string
	run  func(h *harness.Harness) error
}

var all = []scenario{
	{"stream handshake and echo", streamHandshakeEcho},
	{"blocked reader wakes on write", blockedReaderWakesOnWrite},
	{"blocked writer wakes on drain", blockedWriterWakesOnDrain},
	{"connection reset on close", connectionResetOnClose},
	{"datagram delivery and drop", datagramDeliveryAndDrop},
	{"non-blocking returns again", nonBlockingReturnsAgain},
	{"select with notify", selectWithNotify},
	{"seqpacket atomicity", seqpacketAtomicity},
}

// RunAll runs every scenario against its own fresh Harness obtained from
// newHarness, and returns one Result per scenario in order. Each scenario
// gets an independent Harness (addresses like "/a" or "/pair" are reused
// across scenarios) but newHarness is free to attach an observer to every
// Harness it returns before handing it back, which is how the tail CLI
// streams demo traffic: it passes a factory that calls harness.New() and
// then connects its own sink to the fresh Bus.
func RunAll(newHarness func() *harness.Harness) []Result {
	results := make([]Result, 0, len(all))
	for _, sc := range all {
		results = append(results, Result{Name: sc.name, Err: sc.run(newHarness())})
	}
	return results
}

func must(cond bool, format string, args ...any) error {
	if !cond {
		return fmt.Errorf(format, args...)
	}
	return nil
}

func streamHandshakeEcho(h *harness.Harness) error {
	server, err := h.OpenClient(1)
	if err != nil {
		return err
	}
	if err := server.Socket(uds.Stream); err != nil {
		return err
	}
	if err := server.Bind("/a"); err != nil {
		return err
	}
	if err := server.Listen(1); err != nil {
		return err
	}

	client, err := h.OpenClient(2)
	if err != nil {
		return err
	}
	if err := client.Socket(uds.Stream); err != nil {
		return err
	}
	if err := client.Connect("/a", false); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	accepted, err := server.Accept(false)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	if err := must(client.IsConnected(), "client not connected after accept"); err != nil {
		return err
	}

	if n, err := client.Write([]byte("hello"), false); err != nil || n != 5 {
		return fmt.Errorf("client write: n=%d err=%v", n, err)
	}
	buf := make([]byte, 10)
	n, err := accepted.Read(buf, false)
	if err != nil || n != 5 || string(buf[:n]) != "hello" {
		return fmt.Errorf("server read: n=%d err=%v buf=%q", n, err, buf[:n])
	}

	if n, err := accepted.Write([]byte("world"), false); err != nil || n != 5 {
		return fmt.Errorf("server write: n=%d err=%v", n, err)
	}
	n, err = client.Read(buf, false)
	if err != nil || n != 5 || string(buf[:n]) != "world" {
		return fmt.Errorf("client read: n=%d err=%v buf=%q", n, err, buf[:n])
	}

	if err := client.Close(); err != nil {
		return fmt.Errorf("client close: %w", err)
	}
	if err := accepted.Close(); err != nil {
		return fmt.Errorf("accepted close: %w", err)
	}
	if err := server.Close(); err != nil {
		return fmt.Errorf("server close: %w", err)
	}
	return nil
}

func connectedPair(h *harness.Harness) (a, b *harness.Client, err error) {
	server, err := h.OpenClient(1)
	if err != nil {
		return nil, nil, err
	}
	if err := server.Socket(uds.Stream); err != nil {
		return nil, nil, err
	}
	if err := server.Bind("/pair"); err != nil {
		return nil, nil, err
	}
	if err := server.Listen(1); err != nil {
		return nil, nil, err
	}

	client, err := h.OpenClient(2)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Socket(uds.Stream); err != nil {
		return nil, nil, err
	}
	if err := client.Connect("/pair", false); err != nil {
		return nil, nil, err
	}

	accepted, err := server.Accept(false)
	if err != nil {
		return nil, nil, err
	}
	return client, accepted, nil
}

func blockedReaderWakesOnWrite(h *harness.Harness) error {
	client, accepted, err := connectedPair(h)
	if err != nil {
		return err
	}

	buf := make([]byte, 4)
	n, err := client.Read(buf, false)
	if err != uds.ErrWouldBlock || n != 0 {
		return fmt.Errorf("expected parked read, got n=%d err=%v", n, err)
	}
	if client.Suspended() != uds.SuspendRead {
		return fmt.Errorf("client not suspended for read: %v", client.Suspended())
	}

	if n, err := accepted.Write([]byte("abcd"), false); err != nil || n != 4 {
		return fmt.Errorf("write: n=%d err=%v", n, err)
	}

	if client.Suspended() != uds.SuspendNone {
		return fmt.Errorf("client still suspended after peer write: %v", client.Suspended())
	}
	return nil
}

func blockedWriterWakesOnDrain(h *harness.Harness) error {
	client, accepted, err := connectedPair(h)
	if err != nil {
		return err
	}

	filler := bytes.Repeat([]byte{'x'}, uds.BufCap)
	if n, err := client.Write(filler, false); err != nil || n != uds.BufCap {
		return fmt.Errorf("fill: n=%d err=%v", n, err)
	}

	n, err := client.Write([]byte{'y'}, false)
	if err != uds.ErrWouldBlock || n != 0 {
		return fmt.Errorf("expected parked write, got n=%d err=%v", n, err)
	}
	if client.Suspended() != uds.SuspendWrite {
		return fmt.Errorf("client not suspended for write: %v", client.Suspended())
	}

	drained := make([]byte, 1)
	if n, err := accepted.Read(drained, false); err != nil || n != 1 {
		return fmt.Errorf("drain: n=%d err=%v", n, err)
	}

	if client.Suspended() != uds.SuspendNone {
		return fmt.Errorf("client still suspended after drain: %v", client.Suspended())
	}
	return nil
}

func connectionResetOnClose(h *harness.Harness) error {
	client, accepted, err := connectedPair(h)
	if err != nil {
		return err
	}

	if err := accepted.Close(); err != nil {
		return fmt.Errorf("close accepted: %w", err)
	}

	buf := make([]byte, 4)
	_, err = client.Read(buf, false)
	if err != uds.ErrConnectionReset {
		return fmt.Errorf("expected ECONNRESET, got %v", err)
	}

	// Per the design notes (post-reset read of 0), once the one-shot
	// ECONNRESET has been delivered and cleared, the peer is simply gone:
	// subsequent reads report ENOTCONN, not a POSIX-style EOF.
	n, err := client.Read(buf, false)
	if err != uds.ErrNotConnected || n != 0 {
		return fmt.Errorf("expected ENOTCONN after reset cleared, got n=%d err=%v", n, err)
	}
	return nil
}

func datagramDeliveryAndDrop(h *harness.Harness) error {
	a, err := h.OpenClient(1)
	if err != nil {
		return err
	}
	if err := a.Socket(uds.Dgram); err != nil {
		return err
	}
	if err := a.Bind("/x"); err != nil {
		return err
	}

	b, err := h.OpenClient(2)
	if err != nil {
		return err
	}
	if err := b.Socket(uds.Dgram); err != nil {
		return err
	}
	if err := b.Bind("/y"); err != nil {
		return err
	}

	a.SendTo("/y")
	if n, err := a.Write([]byte("p1"), false); err != nil || n != 2 {
		return fmt.Errorf("send p1: n=%d err=%v", n, err)
	}

	buf := make([]byte, 8)
	n, err := b.Read(buf, false)
	if err != nil || n != 2 || string(buf[:n]) != "p1" {
		return fmt.Errorf("recv p1: n=%d err=%v buf=%q", n, err, buf[:n])
	}
	if got := b.RecvFrom(); got != "/x" {
		return fmt.Errorf("recvfrom: got %q, want /x", got)
	}

	a.SendTo("/y")
	if n, err := a.Write([]byte("p2"), false); err != nil || n != 2 {
		return fmt.Errorf("send p2: n=%d err=%v", n, err)
	}
	a.SendTo("/y")
	n, err = a.Write([]byte("p3"), false)
	if err != nil || n != 2 {
		return fmt.Errorf("send p3 (expected silent drop reporting n=2): n=%d err=%v", n, err)
	}

	n, err = b.Read(buf, false)
	if err != nil || n != 2 || string(buf[:n]) != "p2" {
		return fmt.Errorf("recv p2 (p3 should've been dropped): n=%d err=%v buf=%q", n, err, buf[:n])
	}
	return nil
}

func nonBlockingReturnsAgain(h *harness.Harness) error {
	client, _, err := connectedPair(h)
	if err != nil {
		return err
	}

	buf := make([]byte, 4)
	n, err := client.Read(buf, true)
	if err != uds.ErrAgain || n != 0 {
		return fmt.Errorf("expected EAGAIN, got n=%d err=%v", n, err)
	}
	if client.Suspended() != uds.SuspendNone {
		return fmt.Errorf("nonblocking read left a suspension: %v", client.Suspended())
	}
	return nil
}

func selectWithNotify(h *harness.Harness) error {
	client, accepted, err := connectedPair(h)
	if err != nil {
		return err
	}

	ready, err := client.Select(uds.SelectRead | uds.SelectNotify)
	if err != nil {
		return err
	}
	if ready != 0 {
		return fmt.Errorf("expected no immediate ops, got %v", ready)
	}

	if n, err := accepted.Write([]byte{'z'}, false); err != nil || n != 1 {
		return fmt.Errorf("write: n=%d err=%v", n, err)
	}
	return nil
}

func seqpacketAtomicity(h *harness.Harness) error {
	server, err := h.OpenClient(1)
	if err != nil {
		return err
	}
	if err := server.Socket(uds.Seqpacket); err != nil {
		return err
	}
	if err := server.Bind("/sp"); err != nil {
		return err
	}
	if err := server.Listen(1); err != nil {
		return err
	}

	client, err := h.OpenClient(2)
	if err != nil {
		return err
	}
	if err := client.Socket(uds.Seqpacket); err != nil {
		return err
	}
	if err := client.Connect("/sp", false); err != nil {
		return err
	}
	accepted, err := server.Accept(false)
	if err != nil {
		return err
	}

	oversized := bytes.Repeat([]byte{'a'}, uds.BufCap+1)
	if _, err := client.Write(oversized, false); err != uds.ErrMessageSize {
		return fmt.Errorf("expected EMSGSIZE, got %v", err)
	}

	full := bytes.Repeat([]byte{'b'}, uds.BufCap)
	if n, err := client.Write(full, false); err != nil || n != uds.BufCap {
		return fmt.Errorf("full packet: n=%d err=%v", n, err)
	}

	n, err := client.Write([]byte{'c'}, true)
	if err != uds.ErrAgain || n != 0 {
		return fmt.Errorf("expected EAGAIN on second packet while unread, got n=%d err=%v", n, err)
	}

	_ = accepted
	return nil
}
