// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"fmt"
	"sort"

	"github.com/x730-project/x730/lib/codec"
)

// BoundCall executes one registered operation against the live daemon.
// The returned value, if non-nil, is marshaled into Response.Result.
type BoundCall func(ctx context.Context, args []codec.RawMessage, kwargs map[string]codec.RawMessage) (any, error)

// Registry maps stable call identifiers to bound operations. Built
// once at daemon construction; read-only afterwards, so lookups need
// no lock.
type Registry struct {
	calls map[string]BoundCall
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{calls: make(map[string]BoundCall)}
}

// Register binds a call identifier. A duplicate identifier is a
// programming error and fails so the daemon aborts at startup rather
// than silently shadowing an operation.
func (r *Registry) Register(call string, bound BoundCall) error {
	if call == "" {
		return fmt.Errorf("registry: empty call identifier")
	}
	if bound == nil {
		return fmt.Errorf("registry: nil handler for %q", call)
	}
	if _, exists := r.calls[call]; exists {
		return fmt.Errorf("registry: duplicate call identifier %q", call)
	}
	r.calls[call] = bound
	return nil
}

// Lookup returns the bound operation for a call identifier.
func (r *Registry) Lookup(call string) (BoundCall, bool) {
	bound, exists := r.calls[call]
	return bound, exists
}

// Calls returns all registered identifiers, sorted.
func (r *Registry) Calls() []string {
	calls := make([]string, 0, len(r.calls))
	for call := range r.calls {
		calls = append(calls, call)
	}
	sort.Strings(calls)
	return calls
}
