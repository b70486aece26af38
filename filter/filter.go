// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package filter compiles a CEL boolean expression over a socket lifecycle
// event: a compile-once-eval-many Filter type that runs a static self-test
// at construction time against a synthetic event before it is accepted.
package filter

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/josephrewald/minix/uds"
)

type Action string

const (
	ActionInvalid Action = ""
	ActionInclude Action = "include"
	ActionExclude Action = "exclude"
)

type Filter struct {
	Action  Action
	program cel.Program
}

func env() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("minor", cel.StringType),
		cel.Variable("event", cel.DynType),
	)
}

// NewFilter compiles expr under action (include/exclude), returning an
// error if it doesn't typecheck to bool or fails a sanity evaluation
// against a synthetic open event.
func NewFilter(expr string, action Action) (*Filter, error) {
	switch action {
	case ActionInclude, ActionExclude:
	default:
		return nil, fmt.Errorf("invalid action %q", action)
	}

	e, err := env()
	if err != nil {
		return nil, fmt.Errorf("create env: %w", err)
	}

	ast, iss := e.Compile(expr)
	if err = iss.Err(); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if got, want := ast.OutputType(), cel.BoolType; !reflect.DeepEqual(got, want) {
		return nil, fmt.Errorf("invalid output type: got %v, want %v", got, want)
	}

	program, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	f := &Filter{Action: Action(action), program: program}
	if _, err := f.Eval(dummy); err != nil {
		return nil, fmt.Errorf("static test: %w", err)
	}
	return f, nil
}

// Eval reports whether ev matches the compiled expression.
func (f *Filter) Eval(ev *uds.Event) (bool, error) {
	m := ev.Map()
	ret, _, err := f.program.Eval(map[string]any{
		"kind":  m["kind"],
		"minor": m["minor"],
		"event": m,
	})
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}

	x, ok := ret.Value().(bool)
	if !ok {
		return false, fmt.Errorf("invalid return type: got %T, want bool", ret.Value())
	}
	return x, nil
}

var dummy = uds.NewEvent(uds.EventOpen, 1)
