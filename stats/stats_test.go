// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package stats

import (
	"testing"

	"github.com/josephrewald/minix/uds"
)

func TestTakeOnEmptyTable(t *testing.T) {
	tbl := uds.NewTable()
	snap := Take(tbl)
	if snap.Capacity != uds.N-1 {
		t.Fatalf("capacity: got %d, want %d", snap.Capacity, uds.N-1)
	}
	if snap.InUse != 0 || snap.Free != snap.Capacity {
		t.Fatalf("expected an entirely free table, got InUse=%d Free=%d", snap.InUse, snap.Free)
	}
}

func TestTakeCountsListeningAndConnected(t *testing.T) {
	tbl := uds.NewTable()

	listener, err := tbl.Open(1)
	if err != nil {
		t.Fatalf("open listener: %v", err)
	}
	if err := tbl.SetType(listener, uds.Stream); err != nil {
		t.Fatalf("settype: %v", err)
	}
	if err := tbl.Bind(listener, "/stats-test"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := tbl.SetListening(listener, 1); err != nil {
		t.Fatalf("listen: %v", err)
	}

	client, err := tbl.Open(2)
	if err != nil {
		t.Fatalf("open client: %v", err)
	}
	if err := tbl.SetType(client, uds.Stream); err != nil {
		t.Fatalf("settype client: %v", err)
	}
	if err := tbl.LinkConnecting(client, listener); err != nil {
		t.Fatalf("link connecting: %v", err)
	}
	server, err := tbl.Open(1)
	if err != nil {
		t.Fatalf("open server: %v", err)
	}
	pending, _ := tbl.PopBacklog(listener)
	tbl.LinkConnected(pending, server)

	tbl.PerformWrite(client, []byte("hi"), false)

	snap := Take(tbl)
	if snap.InUse != 3 {
		t.Fatalf("in-use: got %d, want 3", snap.InUse)
	}
	if snap.Listening != 1 {
		t.Fatalf("listening: got %d, want 1", snap.Listening)
	}
	if snap.Connected != 2 {
		t.Fatalf("connected: got %d, want 2 (client + server)", snap.Connected)
	}
	if snap.BytesBuffered != 2 {
		t.Fatalf("bytes buffered: got %d, want 2", snap.BytesBuffered)
	}
	if snap.BytesCapacity != 3*uds.BufCap {
		t.Fatalf("bytes capacity: got %d, want %d", snap.BytesCapacity, 3*uds.BufCap)
	}
}
