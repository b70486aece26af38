// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

import "testing"

func connectedStreamPair(t *testing.T) (table *Table, client, server int) {
	t.Helper()
	tbl := NewTable()

	listener, err := tbl.Open(1)
	if err != nil {
		t.Fatalf("open listener: %v", err)
	}
	if err := tbl.SetType(listener, Stream); err != nil {
		t.Fatalf("settype listener: %v", err)
	}
	if err := tbl.Bind(listener, "/pair"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := tbl.SetListening(listener, 1); err != nil {
		t.Fatalf("listen: %v", err)
	}

	c, err := tbl.Open(2)
	if err != nil {
		t.Fatalf("open client: %v", err)
	}
	if err := tbl.SetType(c, Stream); err != nil {
		t.Fatalf("settype client: %v", err)
	}
	if err := tbl.LinkConnecting(c, listener); err != nil {
		t.Fatalf("link connecting: %v", err)
	}

	child, err := tbl.Open(1)
	if err != nil {
		t.Fatalf("open child: %v", err)
	}
	if err := tbl.SetType(child, Stream); err != nil {
		t.Fatalf("settype child: %v", err)
	}
	clientMinor, ok := tbl.PopBacklog(listener)
	if !ok || clientMinor != c {
		t.Fatalf("pop backlog: got %d, %v", clientMinor, ok)
	}
	tbl.LinkConnected(clientMinor, child)

	return tbl, c, child
}

func TestOpenAssignsFirstFreeSlot(t *testing.T) {
	tbl := NewTable()
	a, err := tbl.Open(1)
	if err != nil || a != 1 {
		t.Fatalf("first open: got %d, %v", a, err)
	}
	b, err := tbl.Open(1)
	if err != nil || b != 2 {
		t.Fatalf("second open: got %d, %v", b, err)
	}
	if err := tbl.Close(a); err != nil {
		t.Fatalf("close a: %v", err)
	}
	c, err := tbl.Open(1)
	if err != nil || c != a {
		t.Fatalf("reopen should reuse freed slot: got %d, %v", c, err)
	}
}

func TestOpenExhaustsTable(t *testing.T) {
	tbl := NewTable()
	for i := 1; i < N; i++ {
		if _, err := tbl.Open(1); err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
	}
	if _, err := tbl.Open(1); err != ErrNoFile {
		t.Fatalf("open on full table: got %v, want ErrNoFile", err)
	}
}

func TestCloseUnusedSlotIsInvalidArgument(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Close(5); err != ErrInvalidArgument {
		t.Fatalf("close free slot: got %v, want ErrInvalidArgument", err)
	}
}

func TestCloseOutOfRangeIsNoSuchDevice(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Close(N); err != ErrNoSuchDevice {
		t.Fatalf("close out-of-range: got %v, want ErrNoSuchDevice", err)
	}
}

func TestCloseConnectedPeerDeliversReset(t *testing.T) {
	tbl, client, server := connectedStreamPair(t)

	if err := tbl.Close(server); err != nil {
		t.Fatalf("close server: %v", err)
	}
	if tbl.Peer(client) != None {
		t.Fatalf("client peer should be cleared after server closed")
	}
	if err := tbl.PendingError(client); err != ErrConnectionReset {
		t.Fatalf("pending error: got %v, want ErrConnectionReset", err)
	}
}

func TestClosePendingConnectorRemovesFromBacklog(t *testing.T) {
	tbl := NewTable()
	listener, _ := tbl.Open(1)
	tbl.SetType(listener, Stream)
	tbl.Bind(listener, "/pending")
	tbl.SetListening(listener, 4)

	client, _ := tbl.Open(2)
	tbl.SetType(client, Stream)
	if err := tbl.LinkConnecting(client, listener); err != nil {
		t.Fatalf("link connecting: %v", err)
	}
	if got := tbl.BacklogCount(listener); got != 1 {
		t.Fatalf("backlog count before close: got %d, want 1", got)
	}

	if err := tbl.Close(client); err != nil {
		t.Fatalf("close client: %v", err)
	}
	if got := tbl.BacklogCount(listener); got != 0 {
		t.Fatalf("backlog count after close: got %d, want 0", got)
	}
}

func TestCloseListenerResetsEntireBacklog(t *testing.T) {
	tbl := NewTable()
	listener, _ := tbl.Open(1)
	tbl.SetType(listener, Stream)
	tbl.Bind(listener, "/listen")
	tbl.SetListening(listener, 4)

	var clients []int
	for i := 0; i < 3; i++ {
		c, _ := tbl.Open(2)
		tbl.SetType(c, Stream)
		if err := tbl.LinkConnecting(c, listener); err != nil {
			t.Fatalf("link connecting %d: %v", i, err)
		}
		clients = append(clients, c)
	}

	if err := tbl.Close(listener); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	for _, c := range clients {
		if err := tbl.PendingError(c); err != ErrConnectionReset {
			t.Fatalf("client %d pending error: got %v, want ErrConnectionReset", c, err)
		}
	}
}

func TestBindDuplicatePathIsAddrInUse(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Open(1)
	if err := tbl.Bind(a, "/dup"); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	b, _ := tbl.Open(1)
	if err := tbl.Bind(b, "/dup"); err != ErrAddrInUse {
		t.Fatalf("second bind: got %v, want ErrAddrInUse", err)
	}
}

func TestBindTwiceIsInvalidArgument(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Open(1)
	if err := tbl.Bind(a, "/once"); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if err := tbl.Bind(a, "/twice"); err != ErrInvalidArgument {
		t.Fatalf("rebind: got %v, want ErrInvalidArgument", err)
	}
}

func TestListenBacklogClampsToSoMaxConn(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Open(1)
	tbl.Bind(a, "/clamp")
	if err := tbl.SetListening(a, SoMaxConn*2); err != nil {
		t.Fatalf("listen: %v", err)
	}
	if got := tbl.slots[a].backlogSize; got != SoMaxConn {
		t.Fatalf("backlogSize: got %d, want %d", got, SoMaxConn)
	}
}

func TestLinkConnectingRefusesWhenBacklogFull(t *testing.T) {
	tbl := NewTable()
	listener, _ := tbl.Open(1)
	tbl.SetType(listener, Stream)
	tbl.Bind(listener, "/full")
	tbl.SetListening(listener, 1)

	a, _ := tbl.Open(2)
	if err := tbl.LinkConnecting(a, listener); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	b, _ := tbl.Open(2)
	if err := tbl.LinkConnecting(b, listener); err != ErrConnRefused {
		t.Fatalf("second connect over backlog: got %v, want ErrConnRefused", err)
	}
}

func TestBeginShutdownCountsInuseSlots(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Open(1)
	b, _ := tbl.Open(1)

	if got := tbl.BeginShutdown(); got != 2 {
		t.Fatalf("BeginShutdown: got %d, want 2", got)
	}
	if tbl.ShutdownDone() {
		t.Fatalf("ShutdownDone should be false before any close")
	}
	tbl.Close(a)
	if tbl.ShutdownDone() {
		t.Fatalf("ShutdownDone should be false with one slot still open")
	}
	tbl.Close(b)
	if !tbl.ShutdownDone() {
		t.Fatalf("ShutdownDone should be true once every tracked slot closed")
	}
}
