// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"context"
	"log/slog"
	"time"

	"github.com/x730-project/x730/lib/clock"
)

// Classifier turns level transitions on the shutdown-status line into
// Actions. A rising edge starts a pulse; the following falling edge
// completes it and yields the classification:
//
//	duration <  PulseRebootMin                      → ActionNone (debounce)
//	PulseRebootMin <= duration < PulseRebootMax     → ActionReboot
//	duration >= PulseRebootMax                      → ActionPowerOff
//
// Classifier never blocks and never fails: a falling edge without a
// recorded rise, or a non-positive duration from clock trouble, is
// logged and classified ActionNone. Not safe for concurrent use; the
// Monitor's single edge pump is the only caller.
type Classifier struct {
	timing Timing
	logger *slog.Logger

	lastRise time.Time
	haveRise bool
}

// NewClassifier creates a classifier with the given pulse thresholds.
func NewClassifier(timing Timing, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{timing: timing, logger: logger}
}

// OnEdge consumes one transition. Rising edges record the timestamp
// and return ActionNone; falling edges complete the measurement and
// return the classified action.
func (c *Classifier) OnEdge(level bool, at time.Time) Action {
	if level {
		c.lastRise = at
		c.haveRise = true
		return ActionNone
	}

	if !c.haveRise {
		c.logger.Warn("falling edge without a rising edge, ignoring")
		return ActionNone
	}
	c.haveRise = false

	duration := at.Sub(c.lastRise)
	if duration <= 0 {
		// Clock regression or duplicate timestamps. Never propagate.
		c.logger.Warn("non-positive pulse duration, ignoring", "duration", duration)
		return ActionNone
	}

	switch {
	case duration < c.timing.PulseRebootMin:
		c.logger.Debug("pulse below debounce threshold, ignoring", "duration", duration)
		return ActionNone
	case duration < c.timing.PulseRebootMax:
		c.logger.Info("pulse classified", "duration", duration, "action", "reboot")
		return ActionReboot
	default:
		c.logger.Info("pulse classified", "duration", duration, "action", "poweroff")
		return ActionPowerOff
	}
}

// Executor is the sink for classified actions. *Board implements it;
// tests substitute a recorder.
type Executor interface {
	Reboot(ctx context.Context) error
	PowerOff(ctx context.Context, force bool) error
}

// edgePollInterval bounds each WaitForEdge call so the pump observes
// context cancellation promptly.
const edgePollInterval = 500 * time.Millisecond

// Monitor pumps edges from the shutdown-status line through a
// Classifier and dispatches the resulting actions to an Executor.
// This is the autonomous path: a press of the physical button ends
// here, not in the RPC server.
type Monitor struct {
	line       InputLine
	classifier *Classifier
	executor   Executor
	clock      clock.Clock
	logger     *slog.Logger
}

// NewMonitor wires a shutdown-status line to an executor.
func NewMonitor(line InputLine, timing Timing, executor Executor, clk clock.Clock, logger *slog.Logger) *Monitor {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		line:       line,
		classifier: NewClassifier(timing, logger),
		executor:   executor,
		clock:      clk,
		logger:     logger,
	}
}

// Run consumes edges until ctx is cancelled. Each completed pulse is
// dispatched on its own goroutine so the pump keeps timestamping edges
// while the executor holds the button (the board can emit a new pulse
// during a multi-second hold).
func (m *Monitor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !m.line.WaitForEdge(edgePollInterval) {
			continue
		}

		action := m.classifier.OnEdge(m.line.Read(), m.clock.Now())
		if action == ActionNone {
			continue
		}

		go func() {
			// Detached from ctx: a pulse already classified runs to
			// completion even when Run is cancelled mid-hold, so the
			// system operation behind the hold is never killed by
			// daemon shutdown.
			actionCtx := context.WithoutCancel(ctx)
			var err error
			switch action {
			case ActionReboot:
				err = m.executor.Reboot(actionCtx)
			case ActionPowerOff:
				err = m.executor.PowerOff(actionCtx, false)
			}
			if err != nil {
				m.logger.Error("button action failed", "action", action.String(), "error", err)
			}
		}()
	}
}
