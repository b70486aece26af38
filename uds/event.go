// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind tags the lifecycle transition an Event records.
type EventKind string

const (
	EventOpen    EventKind = "open"
	EventClose   EventKind = "close"
	EventBind    EventKind = "bind"
	EventConnect EventKind = "connect"
	EventListen  EventKind = "listen"
	EventAccept  EventKind = "accept"
	EventRead    EventKind = "read"
	EventWrite   EventKind = "write"
	EventSuspend EventKind = "suspend"
	EventWake    EventKind = "wake"
	EventReset   EventKind = "reset"
	EventError   EventKind = "error"
)

// Event is a tagged bag of string key/value pairs describing one lifecycle
// transition of a slot. Every field here is known synchronously at the
// moment the core raises the event, since the core itself is
// single-threaded — there is no async-fill mechanism. The mutex remains
// because an *Event is
// handed off to transport.Bus sinks that may read it concurrently with a
// later, unrelated event; a single Event's fields are set once, at
// construction, and never mutated across goroutines afterward.
type Event struct {
	mu   sync.RWMutex
	keys []string
	vals map[string]string
}

// NewEvent constructs a standalone Event outside of a Table's own event
// sink. Exposed chiefly so filter/config packages can build a synthetic
// event to sanity-check a compiled expression before accepting it.
func NewEvent(kind EventKind, minor int) *Event {
	return newEvent(kind, minor)
}

func newEvent(kind EventKind, minor int) *Event {
	ev := &Event{
		keys: []string{"time", "event_id", "kind", "minor"},
		vals: map[string]string{
			"time":     time.Now().UTC().Format(time.RFC3339Nano),
			"event_id": uuid.NewString(),
			"kind":     string(kind),
			"minor":    fmt.Sprintf("%d", minor),
		},
	}
	return ev
}

func (ev *Event) Set(key, val string) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if _, ok := ev.vals[key]; ok {
		ev.vals[key] = val
		return
	}
	ev.keys = append(ev.keys, key)
	ev.vals[key] = val
}

func (ev *Event) Get(key string) string {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	return ev.vals[key]
}

// Map returns a snapshot suitable as a CEL activation variable.
func (ev *Event) Map() map[string]any {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	m := make(map[string]any, len(ev.vals))
	for k, v := range ev.vals {
		m[k] = v
	}
	return m
}

func (ev *Event) String() string {
	ev.mu.RLock()
	defer ev.mu.RUnlock()

	var arr []string
	for _, key := range ev.keys {
		arr = append(arr, fmt.Sprintf("%s=%q", key, ev.vals[key]))
	}
	return strings.Join(arr, " ")
}
