// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/josephrewald/minix/uds"
)

func TestValidateRejectsBadAction(t *testing.T) {
	c := &Config{Rules: []Rule{{If: "true", Then: "frobnicate"}}}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected an error for an invalid rule action")
	}
}

func TestValidateRejectsUncompilableRule(t *testing.T) {
	c := &Config{Rules: []Rule{{If: "kind ===", Then: "include"}}}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected a compile error")
	}
}

func TestValidateCompilesEveryRule(t *testing.T) {
	c := &Config{Rules: []Rule{
		{If: `event.kind == "open"`, Then: "include"},
		{If: `event.kind == "close"`, Then: "exclude"},
	}}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	for i, r := range c.Rules {
		if r.program == nil {
			t.Fatalf("rule %d has no compiled program after Validate", i)
		}
	}
}

func TestFindMatchingRuleReturnsFirstMatchInFileOrder(t *testing.T) {
	c := &Config{Rules: []Rule{
		{If: `event.kind == "open"`, Then: "include"},
		{If: `true`, Then: "exclude"},
	}}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	ev := uds.NewEvent(uds.EventOpen, 1)
	rule, found := c.FindMatchingRule(ev)
	if !found || rule.Then != "include" {
		t.Fatalf("FindMatchingRule: found=%v rule=%+v, want the first (include) rule", found, rule)
	}

	ev2 := uds.NewEvent(uds.EventClose, 1)
	rule2, found := c.FindMatchingRule(ev2)
	if !found || rule2.Then != "exclude" {
		t.Fatalf("FindMatchingRule for close: found=%v rule=%+v, want the fallthrough exclude rule", found, rule2)
	}
}

func TestLoadParsesYAMLAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	const doc = `
tags:
  env: test
rules:
  - if: event.kind == "open"
    then: include
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	var c Config
	if err := c.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Tags["env"] != "test" {
		t.Fatalf("tags: got %v, want env=test", c.Tags)
	}
	if len(c.Rules) != 1 || c.Rules[0].Then != "include" {
		t.Fatalf("rules: got %+v", c.Rules)
	}
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	var c Config
	if err := c.Load(""); err == nil {
		t.Fatalf("expected an error for an empty path")
	}
}
