// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package stat builds a harness, opens a representative handful of
// sockets on it, and prints the resulting stats.Snapshot. It's a
// single-purpose ffcli.Command with no subcommands of its own, reporting
// socket-table utilization.
package stat

import (
	"context"
	"flag"
	"fmt"

	"github.com/josephrewald/minix/harness"
	"github.com/josephrewald/minix/logging"
	"github.com/josephrewald/minix/stats"
	"github.com/josephrewald/minix/uds"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

type Stat struct {
	ffcli.Command
	flags struct {
		json bool
	}
}

func NewCommand() *ffcli.Command {
	s := new(Stat)

	s.Name = "stat"
	s.ShortUsage = "minix stat [flags]"
	s.ShortHelp = "print socket table utilization for a representative session"

	s.FlagSet = flag.NewFlagSet("", flag.ContinueOnError)
	s.FlagSet.BoolVar(&s.flags.json, "json", false, "print the snapshot as JSON")
	s.FlagSet.BoolVar(&logging.Verbose, "v", false, "enable verbose logging")

	s.Options = []ff.Option{ff.WithEnvVarPrefix("MINIX_STAT")}
	s.Exec = s.entrypoint
	return &s.Command
}

func (s *Stat) entrypoint(ctx context.Context, args []string) error {
	if err := logging.Init(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	h, err := representativeSession()
	if err != nil {
		return fmt.Errorf("build representative session: %w", err)
	}

	snap := stats.Take(h.Table)
	if s.flags.json {
		fmt.Printf(`{"capacity":%d,"in_use":%d,"free":%d,"bytes_buffered":%d,"bytes_capacity":%d,"listening":%d,"connected":%d}`+"\n",
			snap.Capacity, snap.InUse, snap.Free, snap.BytesBuffered, snap.BytesCapacity, snap.Listening, snap.Connected)
		return nil
	}
	fmt.Println(snap)
	return nil
}

// representativeSession opens one listener, one connected pair, and one
// bound-but-idle datagram socket, so stat has something nontrivial to
// report without requiring a live caller to drive traffic through it first.
func representativeSession() (*harness.Harness, error) {
	h := harness.New()

	server, err := h.OpenClient(1)
	if err != nil {
		return nil, err
	}
	if err := server.Socket(uds.Stream); err != nil {
		return nil, err
	}
	if err := server.Bind("/stat"); err != nil {
		return nil, err
	}
	if err := server.Listen(1); err != nil {
		return nil, err
	}

	client, err := h.OpenClient(2)
	if err != nil {
		return nil, err
	}
	if err := client.Socket(uds.Stream); err != nil {
		return nil, err
	}
	if err := client.Connect("/stat", false); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := server.Accept(false); err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	if _, err := client.Write([]byte("hello"), false); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	dgram, err := h.OpenClient(3)
	if err != nil {
		return nil, err
	}
	if err := dgram.Socket(uds.Dgram); err != nil {
		return nil, err
	}
	if err := dgram.Bind("/stat-dgram"); err != nil {
		return nil, err
	}

	return h, nil
}
