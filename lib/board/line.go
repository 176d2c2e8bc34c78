// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package board

import "time"

// OutputLine drives one logical output pin. Implementations are not
// required to be safe for concurrent use; Board serializes access.
type OutputLine interface {
	// Set drives the line active (true) or inactive (false).
	Set(active bool) error

	// Close releases the pin. Further Set calls fail.
	Close() error
}

// InputLine observes level transitions on one input pin.
type InputLine interface {
	// WaitForEdge blocks until the line changes level or the timeout
	// elapses. Returns true when an edge occurred. After Close it
	// returns false immediately.
	WaitForEdge(timeout time.Duration) bool

	// Read returns the current logical level.
	Read() bool

	// Close releases the pin and unblocks any pending WaitForEdge.
	Close() error
}

// Lines bundles the three X730 pins. Board takes exclusive ownership
// of all three on Open.
type Lines struct {
	// Button simulates the physical power button (BCM 18).
	Button OutputLine

	// BootStatus tells the board the OS is running (BCM 17).
	BootStatus OutputLine

	// ShutdownStatus carries the board's pulse-coded shutdown
	// requests (BCM 4).
	ShutdownStatus InputLine
}

// PinConfig selects the BCM pin numbers for the three lines.
type PinConfig struct {
	Button         int `yaml:"button"`
	ShutdownStatus int `yaml:"shutdown_status"`
	BootStatus     int `yaml:"boot_status"`
}

// DefaultPins returns the X730 wiring.
func DefaultPins() PinConfig {
	return PinConfig{
		Button:         18,
		ShutdownStatus: 4,
		BootStatus:     17,
	}
}
