// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package harness

import (
	"testing"

	"github.com/josephrewald/minix/uds"
)

func TestStreamHandshakeEchoThroughClients(t *testing.T) {
	h := New()

	server, err := h.OpenClient(1)
	if err != nil {
		t.Fatalf("open server: %v", err)
	}
	if err := server.Socket(uds.Stream); err != nil {
		t.Fatalf("server socket: %v", err)
	}
	if err := server.Bind("/h-echo"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := server.Listen(1); err != nil {
		t.Fatalf("listen: %v", err)
	}

	client, err := h.OpenClient(2)
	if err != nil {
		t.Fatalf("open client: %v", err)
	}
	if err := client.Socket(uds.Stream); err != nil {
		t.Fatalf("client socket: %v", err)
	}
	if err := client.Connect("/h-echo", false); err != nil {
		t.Fatalf("connect: %v", err)
	}

	accepted, err := server.Accept(false)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !client.IsConnected() {
		t.Fatalf("client should be connected after accept")
	}

	if n, err := client.Write([]byte("ping"), false); err != nil || n != 4 {
		t.Fatalf("write: n=%d err=%v", n, err)
	}
	buf := make([]byte, 8)
	n, err := accepted.Read(buf, false)
	if err != nil || n != 4 || string(buf[:n]) != "ping" {
		t.Fatalf("read: n=%d err=%v buf=%q", n, err, buf[:n])
	}
}

func TestAcceptFailureClosesReservedChildSlot(t *testing.T) {
	h := New()

	server, err := h.OpenClient(1)
	if err != nil {
		t.Fatalf("open server: %v", err)
	}
	if err := server.Socket(uds.Stream); err != nil {
		t.Fatalf("socket: %v", err)
	}
	if err := server.Bind("/h-accept-fail"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := server.Listen(1); err != nil {
		t.Fatalf("listen: %v", err)
	}

	before := h.Table.BeginShutdown()
	_, err = server.Accept(true)
	if err != uds.ErrAgain {
		t.Fatalf("nonblocking accept on empty backlog: got %v, want ErrAgain", err)
	}
	after := h.Table.BeginShutdown()
	if after != before {
		t.Fatalf("reserved child slot should have been closed after the failed accept: before=%d after=%d", before, after)
	}
}

func TestDatagramSendRecvThroughClients(t *testing.T) {
	h := New()

	a, err := h.OpenClient(1)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	if err := a.Socket(uds.Dgram); err != nil {
		t.Fatalf("socket a: %v", err)
	}
	if err := a.Bind("/h-dgram-a"); err != nil {
		t.Fatalf("bind a: %v", err)
	}

	b, err := h.OpenClient(2)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	if err := b.Socket(uds.Dgram); err != nil {
		t.Fatalf("socket b: %v", err)
	}
	if err := b.Bind("/h-dgram-b"); err != nil {
		t.Fatalf("bind b: %v", err)
	}

	a.SendTo("/h-dgram-b")
	if n, err := a.Write([]byte("pkt"), false); err != nil || n != 3 {
		t.Fatalf("write: n=%d err=%v", n, err)
	}

	buf := make([]byte, 8)
	n, err := b.Read(buf, false)
	if err != nil || n != 3 || string(buf[:n]) != "pkt" {
		t.Fatalf("read: n=%d err=%v buf=%q", n, err, buf[:n])
	}
	if got := b.RecvFrom(); got != "/h-dgram-a" {
		t.Fatalf("recvfrom: got %q, want /h-dgram-a", got)
	}
}
