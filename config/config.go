// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads a YAML file of named tags and CEL-compiled
// include/exclude rules over socket lifecycle events: Load/Validate/
// FindMatchingRule, where Validate typechecks every rule and then runs
// each against a synthetic event as a sanity check before accepting it.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/josephrewald/minix/uds"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Tags  map[string]string `yaml:"tags"`
	Rules []Rule            `yaml:"rules"`
}

func (c *Config) Load(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	slog.Debug("parsed config", "rules", len(c.Rules))
	return nil
}

func (c *Config) Validate() error {
	env, err := cel.NewEnv(
		cel.Variable("event", cel.DynType),
	)
	if err != nil {
		return fmt.Errorf("create cel env: %w", err)
	}

	for index, rule := range c.Rules {
		switch rule.Then {
		case "include", "exclude":
		default:
			return fmt.Errorf("config: invalid action in rule: %q. Expected either 'include' or 'exclude'", rule.Then)
		}

		ast, iss := env.Compile(rule.If)
		if err = iss.Err(); err != nil {
			return fmt.Errorf("compile program: %w", err)
		}
		if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
			return fmt.Errorf("typecheck program: got %v, wanted %v result type", ast.OutputType(), cel.BoolType)
		}
		program, err := env.Program(ast)
		if err != nil {
			return fmt.Errorf("create program instance: %w", err)
		}
		c.Rules[index].program = program
	}

	dummy := uds.NewEvent(uds.EventOpen, 1)
	for _, rule := range c.Rules {
		if _, err := rule.Matches(dummy); err != nil {
			return fmt.Errorf("config test: %w", err)
		}
	}

	return nil
}

// FindMatchingRule returns the first rule matching ev, in file order.
func (c *Config) FindMatchingRule(ev *uds.Event) (rule *Rule, found bool) {
	for i := range c.Rules {
		matches, err := c.Rules[i].Matches(ev)
		if err != nil {
			// Skip this rule so config errors don't take down event
			// tracing entirely.
			continue
		}
		if matches {
			return &c.Rules[i], true
		}
	}
	return nil, false
}

type Rule struct {
	If   string `yaml:"if"`
	Then string `yaml:"then"`

	program cel.Program
}

func (r *Rule) Matches(ev *uds.Event) (bool, error) {
	out, _, err := r.program.Eval(map[string]any{
		"event": ev.Map(),
	})
	if err != nil {
		return false, fmt.Errorf("evaluating program on rule %q: %w", r.If, err)
	}

	match, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluating program on rule %q: expected bool but got %T", r.If, out.Value())
	}
	return match, nil
}
