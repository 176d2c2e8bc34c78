// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"sync"
	"time"

	"github.com/x730-project/x730/lib/clock"
)

// FakeOutput is an in-memory OutputLine that records every transition
// with a timestamp from the injected clock. Shared by board, daemon,
// and integration tests.
type FakeOutput struct {
	clock clock.Clock

	mu          sync.Mutex
	level       bool
	closed      bool
	failWith    error
	transitions []Transition
}

// Transition is one recorded level change on a FakeOutput.
type Transition struct {
	Active bool
	At     time.Time
}

// NewFakeOutput creates a fake output line stamping transitions with
// the given clock. A nil clock uses the real one.
func NewFakeOutput(clk clock.Clock) *FakeOutput {
	if clk == nil {
		clk = clock.Real()
	}
	return &FakeOutput{clock: clk}
}

// FailWith makes every subsequent Set return err. Pass nil to heal.
func (f *FakeOutput) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func (f *FakeOutput) Set(active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if f.closed {
		return errLineClosed
	}
	f.level = active
	f.transitions = append(f.transitions, Transition{Active: active, At: f.clock.Now()})
	return nil
}

func (f *FakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Level returns the current driven level.
func (f *FakeOutput) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Transitions returns a copy of all recorded level changes.
func (f *FakeOutput) Transitions() []Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Transition(nil), f.transitions...)
}

// FakeInput is an in-memory InputLine driven by the test through
// SetLevel. Each level change is delivered to exactly one WaitForEdge
// call, like a hardware edge interrupt.
type FakeInput struct {
	edges chan bool
	quit  chan struct{}

	mu       sync.Mutex
	level    bool
	observed bool
	once     sync.Once
}

// NewFakeInput creates a fake input line, initially low.
func NewFakeInput() *FakeInput {
	return &FakeInput{
		edges: make(chan bool, 16),
		quit:  make(chan struct{}),
	}
}

// SetLevel drives the line to the given level, queueing an edge event
// when the level actually changes.
func (f *FakeInput) SetLevel(level bool) {
	f.mu.Lock()
	changed := f.level != level
	f.level = level
	f.mu.Unlock()
	if changed {
		f.edges <- level
	}
}

func (f *FakeInput) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-f.quit:
		return false
	case level := <-f.edges:
		f.mu.Lock()
		f.observed = level
		f.mu.Unlock()
		return true
	case <-time.After(timeout):
		return false
	}
}

// Read returns the level at the most recently observed edge. Unlike
// real hardware there is no sampling race between the edge interrupt
// and the level read, which keeps tests deterministic.
func (f *FakeInput) Read() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.observed
}

func (f *FakeInput) Close() error {
	f.once.Do(func() { close(f.quit) })
	return nil
}
