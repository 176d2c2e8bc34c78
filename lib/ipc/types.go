// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"fmt"

	"github.com/x730-project/x730/lib/codec"
)

// Call identifiers for the daemon's registered operations.
const (
	// CallReboot restarts the system. No arguments.
	CallReboot = "x730.reboot"

	// CallPowerOff shuts the system down. Optional kwarg "force"
	// (bool): hold the button through the crash band, cutting power
	// abruptly.
	CallPowerOff = "x730.poweroff"
)

// Request is one call on the control socket. Arguments travel as raw
// CBOR; only the bound operation decodes them.
type Request struct {
	// Call is the registered call identifier.
	Call string `cbor:"call"`

	// Args are positional arguments, in call order.
	Args []codec.RawMessage `cbor:"args,omitempty"`

	// Kwargs are named arguments.
	Kwargs map[string]codec.RawMessage `cbor:"kwargs,omitempty"`
}

// Response answers exactly one Request. Call always echoes the
// request's call id so a client can detect crossed wires.
type Response struct {
	// Call echoes Request.Call.
	Call string `cbor:"call"`

	// OK is false when the call failed; Error then carries the
	// message.
	OK bool `cbor:"ok"`

	// Error is the failure message when OK is false.
	Error string `cbor:"error,omitempty"`

	// Result is the call's CBOR-encoded return value, when there is
	// one.
	Result codec.RawMessage `cbor:"result,omitempty"`
}

// EncodeArgs marshals positional argument values for a Request.
func EncodeArgs(values ...any) ([]codec.RawMessage, error) {
	if len(values) == 0 {
		return nil, nil
	}
	encoded := make([]codec.RawMessage, 0, len(values))
	for i, value := range values {
		data, err := codec.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding argument %d: %w", i, err)
		}
		encoded = append(encoded, data)
	}
	return encoded, nil
}

// EncodeKwargs marshals named argument values for a Request.
func EncodeKwargs(values map[string]any) (map[string]codec.RawMessage, error) {
	if len(values) == 0 {
		return nil, nil
	}
	encoded := make(map[string]codec.RawMessage, len(values))
	for name, value := range values {
		data, err := codec.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding argument %q: %w", name, err)
		}
		encoded[name] = data
	}
	return encoded, nil
}

// DecodeKwarg decodes the named argument into out. Returns false when
// the argument is absent, leaving out untouched.
func DecodeKwarg[T any](kwargs map[string]codec.RawMessage, name string, out *T) (bool, error) {
	raw, present := kwargs[name]
	if !present {
		return false, nil
	}
	if err := codec.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decoding argument %q: %w", name, err)
	}
	return true, nil
}
