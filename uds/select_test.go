// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

import "testing"

func TestSelectReadNotReadyOnEmptyBuffer(t *testing.T) {
	tbl, _, server := connectedStreamPair(t)
	ready, err := tbl.Select(server, SelectRead, Endpoint(server))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if ready != 0 {
		t.Fatalf("ready: got %v, want 0", ready)
	}
}

func TestSelectReadReadyAfterData(t *testing.T) {
	tbl, client, server := connectedStreamPair(t)
	tbl.PerformWrite(client, []byte("x"), false)

	ready, err := tbl.Select(server, SelectRead, Endpoint(server))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if ready&SelectRead == 0 {
		t.Fatalf("ready: got %v, want SelectRead set", ready)
	}
}

func TestSelectWriteReadyWhenBufferHasRoom(t *testing.T) {
	tbl, client, _ := connectedStreamPair(t)
	ready, err := tbl.Select(client, SelectWrite, Endpoint(client))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if ready&SelectWrite == 0 {
		t.Fatalf("ready: got %v, want SelectWrite set", ready)
	}
}

func TestSelectWriteNotReadyWhenBufferFull(t *testing.T) {
	tbl, client, _ := connectedStreamPair(t)
	filler := make([]byte, BufCap)
	tbl.PerformWrite(client, filler, false)

	ready, err := tbl.Select(client, SelectWrite, Endpoint(client))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if ready&SelectWrite != 0 {
		t.Fatalf("ready: got %v, want SelectWrite clear", ready)
	}
}

func TestSelectListenerReadyWhenBacklogWaiting(t *testing.T) {
	tbl := NewTable()
	listener, _ := tbl.Open(1)
	tbl.SetType(listener, Stream)
	tbl.Bind(listener, "/select-accept")
	tbl.SetListening(listener, 1)

	ready, err := tbl.Select(listener, SelectRead, Endpoint(listener))
	if err != nil {
		t.Fatalf("select before connector: %v", err)
	}
	if ready&SelectRead != 0 {
		t.Fatalf("ready before connector: got %v, want SelectRead clear", ready)
	}

	client, _ := tbl.Open(2)
	tbl.SetType(client, Stream)
	tbl.LinkConnecting(client, listener)

	ready, err = tbl.Select(listener, SelectRead, Endpoint(listener))
	if err != nil {
		t.Fatalf("select after connector: %v", err)
	}
	if ready&SelectRead == 0 {
		t.Fatalf("ready after connector: got %v, want SelectRead set", ready)
	}
}

func TestSelectNotifyFiresOnLaterReadiness(t *testing.T) {
	tbl, client, server := connectedStreamPair(t)

	var waked bool
	tbl.SetEventSink(func(ev *Event) {
		if ev.Get("kind") == string(EventWake) && ev.Get("select_ops") != "" {
			waked = true
		}
	})

	ready, err := tbl.Select(server, SelectRead|SelectNotify, Endpoint(server))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if ready != 0 {
		t.Fatalf("ready: got %v, want 0", ready)
	}
	if tbl.slots[server].selOps&SelectRead == 0 {
		t.Fatalf("select should have recorded a pending watch for SelectRead")
	}

	tbl.PerformWrite(client, []byte("x"), false)
	if !waked {
		t.Fatalf("expected a select-notify wake event after data arrived")
	}
	if tbl.slots[server].selOps&SelectRead != 0 {
		t.Fatalf("notified bits should be cleared after firing")
	}
}

func TestSelectPretendDoesNotMutateRing(t *testing.T) {
	tbl, client, server := connectedStreamPair(t)
	tbl.PerformWrite(client, []byte("abc"), false)

	tbl.Select(server, SelectRead, Endpoint(server))
	if tbl.slots[server].ring.size != 3 {
		t.Fatalf("select must not drain the ring: size=%d, want 3", tbl.slots[server].ring.size)
	}
}
