// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestFlowCache_AddEdgeDedup(t *testing.T) {
	c := NewFlowCache(t.TempDir())

	param := ParamKey("User", "__construct", "name")
	prop := PropertyKey("User", "name")

	c.AddEdge(FlowParamToProperty, param, prop)
	c.AddEdge(FlowParamToProperty, param, prop)
	c.AddEdge(FlowParamToProperty, param, prop)

	if got := c.Len(); got != 1 {
		t.Errorf("duplicate edges accumulated, Len = %d", got)
	}
}

func TestFlowCache_InvalidKindIgnored(t *testing.T) {
	c := NewFlowCache(t.TempDir())

	c.AddEdge("return_to_param", "a", "b")
	if c.Len() != 0 {
		t.Error("edge stored under unknown kind")
	}
	if got := c.Targets("return_to_param", "a"); got != nil {
		t.Errorf("Targets for unknown kind = %v", got)
	}
}

func TestFlowCache_TargetsInsertionOrder(t *testing.T) {
	c := NewFlowCache(t.TempDir())

	param := ParamKey("Order", "__construct", "items")
	c.AddEdge(FlowParamToProperty, param, PropertyKey("Order", "items"))
	c.AddEdge(FlowParamToProperty, param, PropertyKey("Order", "lines"))
	c.AddEdge(FlowParamToProperty, param, PropertyKey("Order", "audit"))

	got := c.Targets(FlowParamToProperty, param)
	want := []string{"Order::$items", "Order::$lines", "Order::$audit"}
	if len(got) != len(want) {
		t.Fatalf("Targets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Targets[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFlowCache_SourcesReverseJoin(t *testing.T) {
	c := NewFlowCache(t.TempDir())

	prop := PropertyKey("User", "name")
	c.AddEdge(FlowParamToProperty, ParamKey("User", "setName", "name"), prop)
	c.AddEdge(FlowParamToProperty, ParamKey("User", "__construct", "name"), prop)
	c.AddEdge(FlowParamToProperty, ParamKey("User", "__construct", "email"), PropertyKey("User", "email"))

	got := c.Sources(FlowParamToProperty, prop)
	want := []string{"User::__construct::$name", "User::setName::$name"}
	if len(got) != len(want) {
		t.Fatalf("Sources = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sources[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFlowCache_KindsIsolated(t *testing.T) {
	c := NewFlowCache(t.TempDir())

	prop := PropertyKey("User", "name")
	c.AddEdge(FlowParamToProperty, ParamKey("User", "__construct", "name"), prop)
	c.AddEdge(FlowPropertyToReturn, prop, ReturnKey("User", "getName"))

	if got := c.Targets(FlowParamToProperty, prop); got != nil {
		t.Errorf("param_to_property targets for property key = %v", got)
	}
	got := c.Targets(FlowPropertyToReturn, prop)
	if len(got) != 1 || got[0] != "User::getName::return" {
		t.Errorf("property_to_return targets = %v", got)
	}
}

func TestFlowCache_PersistRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	c := NewFlowCache(tmpDir)
	param := ParamKey("User", "__construct", "name")
	prop := PropertyKey("User", "name")
	c.AddEdge(FlowParamToProperty, param, prop)
	c.AddEdge(FlowPropertyToReturn, prop, ReturnKey("User", "getName"))

	if err := c.Persist(context.Background()); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	c2 := NewFlowCache(tmpDir)
	if got := c2.Targets(FlowParamToProperty, param); len(got) != 1 || got[0] != prop {
		t.Errorf("reloaded targets = %v", got)
	}
	if got := c2.Len(); got != 2 {
		t.Errorf("reloaded edge count = %d", got)
	}
}

func TestFlowCache_CorruptDocumentStartsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	c := NewFlowCache(tmpDir)
	if err := os.WriteFile(c.Path(), []byte("][,"), 0644); err != nil {
		t.Fatalf("writing corrupt document: %v", err)
	}

	if c.Len() != 0 {
		t.Errorf("corrupt document yielded %d edges", c.Len())
	}
}

func TestFlowCache_EvictionDropsOldestSources(t *testing.T) {
	clock := newFakeClock()
	c := NewFlowCache(t.TempDir(), WithCapacity(10), WithClock(clock.Now))

	// Eight sources at one edge each reaches the trigger.
	for i := 0; i < 8; i++ {
		source := ParamKey("Svc", fmt.Sprintf("m%d", i), "arg")
		c.AddEdge(FlowParamToProperty, source, PropertyKey("Svc", fmt.Sprintf("p%d", i)))
		clock.Advance(time.Second)
	}

	// Touch the oldest source so a younger one becomes the victim.
	oldest := ParamKey("Svc", "m0", "arg")
	if got := c.Targets(FlowParamToProperty, oldest); got == nil {
		t.Fatal("expected edges for oldest source")
	}
	clock.Advance(time.Second)

	c.AddEdge(FlowParamToProperty, ParamKey("Svc", "m8", "arg"), PropertyKey("Svc", "p8"))

	if got := c.Targets(FlowParamToProperty, oldest); got == nil {
		t.Error("recently accessed source evicted")
	}
	if got := c.Targets(FlowParamToProperty, ParamKey("Svc", "m1", "arg")); got != nil {
		t.Errorf("oldest unaccessed source survived eviction: %v", got)
	}
}

func TestFlowCache_Clear(t *testing.T) {
	tmpDir := t.TempDir()
	c := NewFlowCache(tmpDir)
	c.AddEdge(FlowParamToProperty, ParamKey("User", "__construct", "id"), PropertyKey("User", "id"))
	if err := c.Persist(context.Background()); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.Len() != 0 {
		t.Error("edges survived Clear")
	}
	if _, err := os.Stat(c.Path()); !os.IsNotExist(err) {
		t.Error("document survived Clear")
	}
}
