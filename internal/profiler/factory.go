/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package profiler

import (
	"log/slog"
	"sync"
)

// Kind tags the system a bound profiler belongs to.
type Kind int

const (
	// KindRequest is wren's own request instrumentation engine.
	KindRequest Kind = iota
	// KindExternal marks a slot held by a foreign profiler.
	KindExternal
)

type binding struct {
	kind     Kind
	profiler Profiler
}

// Factory owns the exclusive profiler slot per request. At most one
// profiler may be bound to a slot at any time; a second Start on an
// occupied slot is refused regardless of kind.
type Factory struct {
	mu    sync.Mutex
	slots map[string]*binding
}

func NewFactory() *Factory {
	return &Factory{
		slots: map[string]*binding{},
	}
}

// Start binds a new profiler of the given kind to the slot. It returns
// false when the slot is already occupied; the caller must treat that as
// a conflict with whatever system attached first.
func (f *Factory) Start(slot string, kind Kind) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if held, ok := f.slots[slot]; ok {
		slog.Debug("Profiler slot already bound", "slot", slot, "kind", held.kind)
		return false
	}

	f.slots[slot] = &binding{
		kind:     kind,
		profiler: NewEngine(),
	}
	return true
}

// Bind attaches an externally owned profiler to the slot, subject to the
// same exclusivity rule. Used by host systems that bring their own
// implementation.
func (f *Factory) Bind(slot string, p Profiler, kind Kind) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.slots[slot]; ok {
		return false
	}

	f.slots[slot] = &binding{kind: kind, profiler: p}
	return true
}

// Stop releases the slot, unconditionally disabling any active sinks of
// the bound profiler. Stopping a free slot is a no-op.
func (f *Factory) Stop(slot string) {
	f.mu.Lock()
	held, ok := f.slots[slot]
	delete(f.slots, slot)
	f.mu.Unlock()

	if !ok {
		return
	}

	held.profiler.DisableTracing()
	held.profiler.DisableProfiling()
}

// Get returns the profiler bound to the slot, or nil when the slot is
// free.
func (f *Factory) Get(slot string) Profiler {
	f.mu.Lock()
	defer f.mu.Unlock()

	if held, ok := f.slots[slot]; ok {
		return held.profiler
	}
	return nil
}

// KindOf returns the kind bound to the slot. The second return value is
// false when the slot is free.
func (f *Factory) KindOf(slot string) (Kind, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if held, ok := f.slots[slot]; ok {
		return held.kind, true
	}
	return 0, false
}
