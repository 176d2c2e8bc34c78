// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package board

import "time"

// Action is a classified board command. Pure value, no resources.
type Action int

const (
	// ActionNone means no action: a sub-threshold glitch on the
	// status line, or a malformed measurement.
	ActionNone Action = iota

	// ActionReboot restarts the system cleanly.
	ActionReboot

	// ActionPowerOff shuts the system down cleanly.
	ActionPowerOff

	// ActionPowerOffForced cuts power abruptly, the software
	// equivalent of pulling the plug. Never produced by the
	// classifier; only requested explicitly over RPC.
	ActionPowerOffForced
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionReboot:
		return "reboot"
	case ActionPowerOff:
		return "poweroff"
	case ActionPowerOffForced:
		return "poweroff-forced"
	default:
		return "unknown"
	}
}

// Timing collects the pulse-width constants of the board protocol.
// The values are fixed by the X730 firmware, not derived here.
type Timing struct {
	// PulseRebootMin is the debounce threshold on the shutdown-status
	// line. Pulses shorter than this are electrical noise.
	PulseRebootMin time.Duration

	// PulseRebootMax is the reboot/power-off boundary on the
	// shutdown-status line. Pulses in [PulseRebootMin, PulseRebootMax)
	// mean reboot; PulseRebootMax and above mean power off.
	PulseRebootMax time.Duration

	// RebootHold is how long the button line is held to request a
	// reboot (the board's 1-2 second band).
	RebootHold time.Duration

	// PowerOffHold is how long the button line is held to request a
	// clean power-off (the 3-7 second band).
	PowerOffHold time.Duration

	// CrashHold is how long the button line is held to force an
	// abrupt power cut (the 8+ second band).
	CrashHold time.Duration
}

// DefaultTiming returns the X730 firmware pulse widths.
func DefaultTiming() Timing {
	return Timing{
		PulseRebootMin: 200 * time.Millisecond,
		PulseRebootMax: 600 * time.Millisecond,
		RebootHold:     1500 * time.Millisecond,
		PowerOffHold:   5 * time.Second,
		CrashHold:      9 * time.Second,
	}
}

// holdFor returns the button hold duration for an action.
func (t Timing) holdFor(action Action) time.Duration {
	switch action {
	case ActionReboot:
		return t.RebootHold
	case ActionPowerOffForced:
		return t.CrashHold
	default:
		return t.PowerOffHold
	}
}
