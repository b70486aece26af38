// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package demo runs the end-to-end socket lifecycle scenarios against a
// fresh harness.Harness each, and reports PASS/FAIL. It's an ffcli.Command
// that drives the core directly, exercising the in-process socket table
// instead of launching and tracing a real child process.
package demo

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/josephrewald/minix/harness"
	"github.com/josephrewald/minix/logging"
	"github.com/josephrewald/minix/scenario"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

type Demo struct {
	ffcli.Command
}

func NewCommand() *ffcli.Command {
	d := new(Demo)

	d.Name = "demo"
	d.ShortUsage = "minix demo [flags]"
	d.ShortHelp = "run the end-to-end socket scenarios and report pass/fail"

	d.FlagSet = flag.NewFlagSet("", flag.ContinueOnError)
	d.FlagSet.BoolVar(&logging.Verbose, "v", false, "enable verbose logging")

	d.Options = []ff.Option{ff.WithEnvVarPrefix("MINIX_DEMO")}
	d.Exec = d.entrypoint
	return &d.Command
}

func (d *Demo) entrypoint(ctx context.Context, args []string) error {
	if err := logging.Init(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	results := scenario.RunAll(harness.New)
	failed := 0
	for _, r := range results {
		fmt.Println(r)
		if r.Err != nil {
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "minix: demo: %d/%d scenarios failed\n", failed, len(results))
		os.Exit(1)
	}
	return nil
}
