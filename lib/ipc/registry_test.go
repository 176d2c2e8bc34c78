// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"reflect"
	"testing"

	"github.com/x730-project/x730/lib/codec"
)

func noopCall(ctx context.Context, args []codec.RawMessage, kwargs map[string]codec.RawMessage) (any, error) {
	return nil, nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(CallReboot, noopCall); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(CallPowerOff, noopCall); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, exists := registry.Lookup(CallReboot); !exists {
		t.Error("registered call not found")
	}
	if _, exists := registry.Lookup("x730.selfdestruct"); exists {
		t.Error("unregistered call found")
	}

	want := []string{CallPowerOff, CallReboot}
	if got := registry.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("Calls() = %v, want %v", got, want)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(CallReboot, noopCall); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(CallReboot, noopCall); err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestRegistryRejectsInvalid(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register("", noopCall); err == nil {
		t.Error("empty call identifier accepted")
	}
	if err := registry.Register("x", nil); err == nil {
		t.Error("nil handler accepted")
	}
}
