/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package profiler

// Trace option bit flags, combinable with the configured trace settings.
const (
	TraceAppend        int64 = 1
	TraceComputerized  int64 = 2
	TraceHTML          int64 = 4
	TraceNakedFilename int64 = 8
)

// Profile option bit flags.
const (
	ProfileAppend int64 = 1
)

// Profiler is the capability bound to a request while instrumentation is
// attached. A profiler owns up to two sinks, a function trace and a
// profile, which can be enabled and disabled independently.
type Profiler interface {
	EnableTracing(path string, options int64) error
	DisableTracing()
	EnableProfiling(path string, options int64) error
	DisableProfiling()

	IsTracing() bool
	IsProfiling() bool
	// IsCollecting reports whether any sink is active. A profiler that
	// collects nothing is eligible for release.
	IsCollecting() bool

	TracingFilename() string
	ProfilingFilename() string

	BeginFrame(function string)
	EndFrame(function string)

	SetCollectMemory(enabled bool)
	SetCollectTime(enabled bool)
}
