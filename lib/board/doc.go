// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

// Package board controls the Geekworm X730 power-management HAT.
//
// The board and the Pi talk over three GPIO lines (BCM numbering):
//
//   - GPIO 18, output: simulates holding the physical power button.
//     The hold duration selects the board's response — a short hold
//     requests a reboot, a longer one a clean power-off, and a very
//     long one an abrupt power cut.
//   - GPIO 4, input: the shutdown-status line. When the physical
//     button is pressed, the board answers with a pulse whose width
//     encodes the requested action; Classifier turns that pulse into
//     an Action and Monitor dispatches it.
//   - GPIO 17, output: the boot-status line, driven high while the OS
//     is up so the board knows a hard cut would lose data.
//
// Board is the single owner of the output lines. Its Reboot and
// PowerOff methods serialize against each other and against the
// autonomous button path through an internal mutex, then invoke the
// OS-level operation (systemctl by default, injectable for tests).
//
// The raw pin driver is periph.io; the package only depends on the
// small InputLine and OutputLine interfaces, with in-memory fakes for
// tests.
package board
