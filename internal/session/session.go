/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/tschaefer/wren/internal/config"
	"github.com/tschaefer/wren/internal/filename"
	"github.com/tschaefer/wren/internal/inspect"
	"github.com/tschaefer/wren/internal/profiler"
	"github.com/tschaefer/wren/internal/request"
)

// ErrProfilerConflict is returned when the request's profiler slot is
// already held by another system. Fatal and never retried; the first
// profiler wins.
var ErrProfilerConflict = errors.New("could not attach profiler, another profiler is already bound to this request")

// Session coordinates the exclusive profiler binding of a single request.
// It is request-local by construction and must not be shared across
// requests; no locking happens here.
//
// States: detached, attached-idle (bound, no sink active) and
// attached-active. A session always ends detached, RequestShutdown makes
// sure of it.
type Session struct {
	config  *config.Config
	factory *profiler.Factory
	ctx     *request.Context

	slot     string
	attached bool
	initTime time.Time
}

func New(cfg *config.Config, factory *profiler.Factory, ctx *request.Context) *Session {
	return &Session{
		config:  cfg,
		factory: factory,
		ctx:     ctx,
		slot:    ctx.UniqueID(),
	}
}

// RequestInit records the request start time and attaches the profiler
// when configuration or request triggers ask for instrumentation.
func (s *Session) RequestInit() error {
	s.initTime = time.Now()

	if !s.config.Enabled() || !s.config.InstrumentationNeeded(s.ctx) {
		return nil
	}
	return s.Attach()
}

// RequestShutdown unconditionally releases the profiler binding. It is
// safe on a detached session and never fails; a binding must not outlive
// its request even on abnormal exit paths.
func (s *Session) RequestShutdown() {
	if !s.attached {
		return
	}

	slog.Debug("Releasing profiler on request shutdown", "slot", s.slot)
	s.Detach()
}

// Attach claims the request's profiler slot and starts whatever
// collection is needed. Attaching an already attached session is a no-op.
func (s *Session) Attach() error {
	if s.attached {
		return nil
	}

	if !s.factory.Start(s.slot, profiler.KindRequest) {
		return ErrProfilerConflict
	}
	s.attached = true

	prof := s.factory.Get(s.slot)
	if s.config.ProfilingNeeded(s.ctx) {
		if _, err := s.startProfiling(prof); err != nil {
			slog.Warn("Failed to start profiling", "slot", s.slot, "error", err)
		}
	}
	if s.config.TracingNeeded(s.ctx) {
		if _, err := s.startTracing(prof, "", 0); err != nil {
			slog.Warn("Failed to start tracing", "slot", s.slot, "error", err)
		}
	}

	prof.SetCollectMemory(s.config.CollectMemory())
	prof.SetCollectTime(s.config.CollectTime())

	return nil
}

// Detach releases the profiler slot, which stops any active sinks as a
// side effect. Detaching a detached session is a no-op.
func (s *Session) Detach() {
	if !s.attached {
		return
	}

	s.factory.Stop(s.slot)
	s.attached = false
}

// DetachIfIdle releases the binding when the profiler reports no active
// collection.
func (s *Session) DetachIfIdle() {
	if !s.attached {
		return
	}
	if !s.profiler().IsCollecting() {
		s.Detach()
	}
}

// StartTrace starts the function trace sink, attaching first if needed.
// file overrides the configured output directory and name; options are
// OR-ed with the option bits derived from configuration. Returns the
// resolved output path. When a trace is already running the second return
// value is false and nothing changes.
func (s *Session) StartTrace(file string, options int64) (string, bool, error) {
	if !s.attached {
		if err := s.Attach(); err != nil {
			return "", false, err
		}
	}

	prof := s.profiler()
	if prof.IsTracing() {
		return "", false, nil
	}

	path, err := s.startTracing(prof, file, options)
	if err != nil {
		return "", false, err
	}

	// Mark the call site depth at which the trace began.
	function := inspect.MainFunction
	if frame, ok := inspect.CallerFrame(1); ok {
		function = frame.Function
	}
	prof.BeginFrame(function)

	return path, true, nil
}

// StopTrace stops the trace sink and returns the trace file path. When no
// trace is running the second return value is false.
func (s *Session) StopTrace() (string, bool) {
	if !s.attached {
		return "", false
	}

	prof := s.profiler()
	if !prof.IsTracing() {
		return "", false
	}

	path := prof.TracingFilename()
	prof.DisableTracing()
	s.DetachIfIdle()

	return path, true
}

// StartProfile starts the profile sink using the configured output
// directory and name; there is no caller override. Attaches first if
// needed.
func (s *Session) StartProfile() (string, bool, error) {
	if !s.attached {
		if err := s.Attach(); err != nil {
			return "", false, err
		}
	}

	prof := s.profiler()
	if prof.IsProfiling() {
		return "", false, nil
	}

	path, err := s.startProfiling(prof)
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// StopProfile stops the profile sink and returns the profile file path.
// When no profile is running the second return value is false.
func (s *Session) StopProfile() (string, bool) {
	if !s.attached {
		return "", false
	}

	prof := s.profiler()
	if !prof.IsProfiling() {
		return "", false
	}

	path := prof.ProfilingFilename()
	prof.DisableProfiling()
	s.DetachIfIdle()

	return path, true
}

// Attached reports whether a profiler is bound to the session.
func (s *Session) Attached() bool {
	return s.attached
}

// Collecting reports whether a profiler is bound and any sink is active.
func (s *Session) Collecting() bool {
	return s.attached && s.profiler().IsCollecting()
}

func (s *Session) IsTracing() bool {
	return s.attached && s.profiler().IsTracing()
}

func (s *Session) IsProfiling() bool {
	return s.attached && s.profiler().IsProfiling()
}

// TracefileName returns the active trace file path, or ("", false) when
// no trace is running.
func (s *Session) TracefileName() (string, bool) {
	if !s.IsTracing() {
		return "", false
	}
	return s.profiler().TracingFilename(), true
}

// ProfileFilename returns the active profile file path, or ("", false)
// when no profile is running.
func (s *Session) ProfileFilename() (string, bool) {
	if !s.IsProfiling() {
		return "", false
	}
	return s.profiler().ProfilingFilename(), true
}

// TimeIndex returns the seconds elapsed since request init, 0 before
// RequestInit ran.
func (s *Session) TimeIndex() float64 {
	if s.initTime.IsZero() {
		return 0
	}
	return time.Since(s.initTime).Seconds()
}

// BeginFrame records a function entry on the bound profiler. No-op while
// detached.
func (s *Session) BeginFrame(function string) {
	if s.attached {
		s.profiler().BeginFrame(function)
	}
}

// EndFrame records a function exit on the bound profiler. No-op while
// detached.
func (s *Session) EndFrame(function string) {
	if s.attached {
		s.profiler().EndFrame(function)
	}
}

// SetCollectMemory pushes the runtime toggle into the bound profiler and
// releases the binding if that left nothing to collect.
func (s *Session) SetCollectMemory(enabled bool) {
	if !s.attached {
		return
	}
	s.profiler().SetCollectMemory(enabled)
	s.DetachIfIdle()
}

// SetCollectTime pushes the runtime toggle into the bound profiler and
// releases the binding if that left nothing to collect.
func (s *Session) SetCollectTime(enabled bool) {
	if !s.attached {
		return
	}
	s.profiler().SetCollectTime(enabled)
	s.DetachIfIdle()
}

func (s *Session) profiler() profiler.Profiler {
	return s.factory.Get(s.slot)
}

func (s *Session) startTracing(prof profiler.Profiler, file string, options int64) (string, error) {
	settings := s.config.Trace()

	if settings.Append {
		options |= profiler.TraceAppend
	}
	switch settings.Format {
	case 1:
		options |= profiler.TraceComputerized
	case 2:
		options |= profiler.TraceHTML
	}

	dir, name := settings.OutputDir, settings.OutputName
	if file != "" {
		dir, name = "", file
	}

	addSuffix := options&profiler.TraceNakedFilename == 0
	path := filename.Expand(dir, name, addSuffix, s.ctx.FilenameValues(s.config.SessionName()))

	if err := prof.EnableTracing(path, options); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Session) startProfiling(prof profiler.Profiler) (string, error) {
	settings := s.config.Profiler()

	var options int64
	if settings.Append {
		options |= profiler.ProfileAppend
	}

	path := filename.Expand(settings.OutputDir, settings.OutputName, false, s.ctx.FilenameValues(s.config.SessionName()))

	if err := prof.EnableProfiling(path, options); err != nil {
		return "", err
	}
	return path, nil
}
