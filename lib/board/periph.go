// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// OpenLines opens the three board pins through periph.io. The button
// line starts inactive and the boot-status line low; Board.Open raises
// boot-status once it owns the lines. The shutdown-status input is
// configured with a pull-down and both-edge detection, matching the
// board's active-high pulse signaling.
func OpenLines(pins PinConfig) (Lines, error) {
	if _, err := host.Init(); err != nil {
		return Lines{}, fmt.Errorf("initializing gpio host: %w", err)
	}

	button, err := openOutput(pins.Button, gpio.Low)
	if err != nil {
		return Lines{}, fmt.Errorf("button line: %w", err)
	}
	bootStatus, err := openOutput(pins.BootStatus, gpio.Low)
	if err != nil {
		button.Close()
		return Lines{}, fmt.Errorf("boot-status line: %w", err)
	}
	shutdownStatus, err := openInput(pins.ShutdownStatus)
	if err != nil {
		button.Close()
		bootStatus.Close()
		return Lines{}, fmt.Errorf("shutdown-status line: %w", err)
	}

	return Lines{
		Button:         button,
		BootStatus:     bootStatus,
		ShutdownStatus: shutdownStatus,
	}, nil
}

func openOutput(bcm int, initial gpio.Level) (*periphOutput, error) {
	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", bcm))
	if pin == nil {
		return nil, fmt.Errorf("GPIO%d not present (not running on a Pi?)", bcm)
	}
	if err := pin.Out(initial); err != nil {
		return nil, fmt.Errorf("configuring GPIO%d as output: %w", bcm, err)
	}
	return &periphOutput{pin: pin}, nil
}

func openInput(bcm int) (*periphInput, error) {
	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", bcm))
	if pin == nil {
		return nil, fmt.Errorf("GPIO%d not present (not running on a Pi?)", bcm)
	}
	if err := pin.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("configuring GPIO%d for edge detection: %w", bcm, err)
	}
	return &periphInput{pin: pin}, nil
}

type periphOutput struct {
	pin gpio.PinIO
}

func (o *periphOutput) Set(active bool) error {
	return o.pin.Out(gpio.Level(active))
}

func (o *periphOutput) Close() error {
	return o.pin.Halt()
}

type periphInput struct {
	pin gpio.PinIO
}

func (i *periphInput) WaitForEdge(timeout time.Duration) bool {
	return i.pin.WaitForEdge(timeout)
}

func (i *periphInput) Read() bool {
	return i.pin.Read() == gpio.High
}

func (i *periphInput) Close() error {
	return i.pin.Halt()
}
