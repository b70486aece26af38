// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package tail subscribes to a harness's event bus and prints lifecycle
// events matching a set of CEL filters: a repeatable -filter flag and
// text/json output modes, subscribing to a local transport.Bus rather
// than a remote event source.
package tail

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/josephrewald/minix/filter"
	"github.com/josephrewald/minix/harness"
	"github.com/josephrewald/minix/logging"
	"github.com/josephrewald/minix/scenario"
	"github.com/josephrewald/minix/transport"
	"github.com/josephrewald/minix/uds"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

type filterFlags []string

func (f *filterFlags) String() string {
	var ret []string
	for _, s := range *f {
		ret = append(ret, fmt.Sprintf("%q", s))
	}
	return strings.Join(ret, " ")
}

func (f *filterFlags) Set(s string) error {
	*f = append(*f, s)
	return nil
}

type Tail struct {
	ffcli.Command
	flags struct {
		filters filterFlags
		format  string
	}
}

func NewCommand() *ffcli.Command {
	t := new(Tail)

	t.Name = "tail"
	t.ShortUsage = "minix tail [flags]"
	t.ShortHelp = "tail socket lifecycle events from the demo harness"

	t.FlagSet = flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	t.FlagSet.Var(&t.flags.filters, "filter", "CEL expression over event/kind/minor (multiple okay, ANDed)")
	t.FlagSet.StringVar(&t.flags.format, "format", "text", "either text (default) or json")
	t.FlagSet.BoolVar(&logging.Verbose, "v", false, "enable verbose logging")
	t.FlagSet.StringVar(&logging.Logfile, "logfile", "", "file for debug logs (stdout if unspecified)")

	t.Options = []ff.Option{ff.WithEnvVarPrefix("MINIX_TAIL")}
	t.Exec = t.entrypoint
	return &t.Command
}

func (t *Tail) entrypoint(ctx context.Context, args []string) error {
	if err := logging.Init(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	switch t.flags.format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q", t.flags.format)
	}

	var filters []*filter.Filter
	for _, expr := range t.flags.filters {
		f, err := filter.NewFilter(expr, filter.ActionInclude)
		if err != nil {
			return fmt.Errorf("compile filter %q: %w", expr, err)
		}
		filters = append(filters, f)
	}

	sink := &printSink{format: t.flags.format, filters: filters, done: make(chan struct{})}
	fmt.Fprintln(os.Stderr, "minix: tail: streaming lifecycle events from the built-in demo scenarios")

	// There's no real cross-process IPC here, so tail generates its own
	// lifecycle traffic: every scenario gets a fresh Harness, as in
	// 'minix demo', but each one has this sink wired to its Bus before any
	// socket call runs, so every event any scenario emits streams straight
	// through HandleEvent.
	results := scenario.RunAll(func() *harness.Harness {
		h := harness.New()
		h.Bus.Connect(sink, transport.WithBufferSize(-1))
		return h
	})

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "minix: tail: scenario %q failed: %v\n", r.Name, r.Err)
		}
	}
	close(sink.done)
	if failed > 0 {
		return fmt.Errorf("%d/%d scenarios failed while generating traffic", failed, len(results))
	}
	return nil
}

type printSink struct {
	format  string
	filters []*filter.Filter
	done    chan struct{}
}

func (s *printSink) Name() string { return "tail" }

func (s *printSink) HandleEvent(ev *uds.Event) {
	for _, f := range s.filters {
		ok, err := f.Eval(ev)
		if err != nil || !ok {
			return
		}
	}

	switch s.format {
	case "json":
		fmt.Println(ev.String())
	default:
		fmt.Printf("%s  minor=%s  %s\n", ev.Get("kind"), ev.Get("minor"), ev)
	}
}

func (s *printSink) Done() <-chan struct{} { return s.done }
