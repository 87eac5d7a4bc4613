/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"log/slog"
	"strings"

	"github.com/tschaefer/wren/internal/coverage"
	"github.com/tschaefer/wren/internal/inspect"
	"github.com/tschaefer/wren/internal/request"
	"github.com/tschaefer/wren/internal/session"
)

// Request is the per-request instrumentation surface. It bundles the
// profiler session, the coverage collector and the memory meter for one
// request and records finished runs on shutdown. Like the session it
// wraps, a Request must not be shared across requests.
type Request struct {
	controller *Controller
	ctx        *request.Context
	session    *session.Session
	coverage   *coverage.Collector
	meter      *inspect.Meter
}

// BindRequest creates the instrumentation binding for a request context.
func (c *Controller) BindRequest(ctx *request.Context) *Request {
	return &Request{
		controller: c,
		ctx:        ctx,
		session:    session.New(c.config, c.factory, ctx),
		coverage:   coverage.NewCollector(),
		meter:      inspect.NewMeter(),
	}
}

// Init starts the request clock and attaches the profiler when the
// configuration or a request trigger asks for it. A conflict on the
// request's profiler slot is fatal for instrumentation and reported as
// session.ErrProfilerConflict.
func (r *Request) Init() error {
	return r.session.RequestInit()
}

// Shutdown records any still active trace and profile as runs, then
// releases the profiler binding. Safe to call on a request that never
// attached.
func (r *Request) Shutdown() {
	r.flush()
	r.coverage.Stop(true)
	r.session.RequestShutdown()
}

func (r *Request) StartTrace(file string, options int64) (string, bool, error) {
	return r.session.StartTrace(file, options)
}

// StopTrace stops the trace sink and records the run.
func (r *Request) StopTrace() (string, bool) {
	duration := r.session.TimeIndex()
	path, ok := r.session.StopTrace()
	if ok {
		r.record(RunKindTrace, path, duration)
	}
	return path, ok
}

func (r *Request) StartProfile() (string, bool, error) {
	return r.session.StartProfile()
}

// StopProfile stops the profile sink and records the run.
func (r *Request) StopProfile() (string, bool) {
	duration := r.session.TimeIndex()
	path, ok := r.session.StopProfile()
	if ok {
		r.record(RunKindProfile, path, duration)
	}
	return path, ok
}

func (r *Request) TracefileName() (string, bool) {
	return r.session.TracefileName()
}

func (r *Request) ProfileFilename() (string, bool) {
	return r.session.ProfileFilename()
}

// TimeIndex returns the seconds elapsed since request init.
func (r *Request) TimeIndex() float64 {
	return r.session.TimeIndex()
}

func (r *Request) Collecting() bool {
	return r.session.Collecting()
}

// Nested reports whether the request runs inside an already instrumented
// execution context.
func (r *Request) Nested() bool {
	return r.ctx.Nested
}

// BeginFrame records a function entry with the bound profiler. No-op
// when no profiler is attached.
func (r *Request) BeginFrame(function string) {
	r.session.BeginFrame(function)
}

// EndFrame records a function exit with the bound profiler. No-op when
// no profiler is attached.
func (r *Request) EndFrame(function string) {
	r.session.EndFrame(function)
}

// StartCoverage begins line coverage collection. Starting inside a
// nested execution context is suspicious but not fatal, it logs an
// advisory warning and proceeds.
func (r *Request) StartCoverage(options int64) error {
	if r.ctx.Nested {
		slog.Warn("Starting coverage in a nested execution context, proceeding", "id", r.ctx.UniqueID())
	}
	return r.coverage.Start(options)
}

func (r *Request) StopCoverage(reset bool) {
	r.coverage.Stop(reset)
}

func (r *Request) CoverageStarted() bool {
	return r.coverage.Started()
}

// CountLine records one execution of the given file and line with the
// coverage collector. Ignored while coverage is stopped.
func (r *Request) CountLine(file string, line int) {
	r.coverage.Count(file, line)
}

func (r *Request) Coverage() map[string]map[int]int {
	return r.coverage.Report()
}

// MemoryUsage returns the current heap allocation in bytes.
func (r *Request) MemoryUsage() uint64 {
	return r.meter.Usage()
}

// PeakMemoryUsage returns the largest heap allocation observed during
// the request.
func (r *Request) PeakMemoryUsage() uint64 {
	return r.meter.PeakUsage()
}

// CallClass returns the receiver type of the function that called the
// current one, empty for plain functions or at the top of the stack.
func (r *Request) CallClass() string {
	frame, ok := inspect.CallerFrame(1)
	if !ok {
		return ""
	}
	return frame.Class
}

// CallFunction returns the name of the function that called the current
// one, the top-level marker at the top of the stack.
func (r *Request) CallFunction() string {
	frame, ok := inspect.CallerFrame(1)
	if !ok {
		return inspect.MainFunction
	}
	return frame.Function
}

// CallFile returns the source file of the calling function.
func (r *Request) CallFile() string {
	frame, ok := inspect.CallerFrame(1)
	if !ok {
		return ""
	}
	return frame.File
}

// CallLine returns the source line of the calling function.
func (r *Request) CallLine() int {
	frame, ok := inspect.CallerFrame(1)
	if !ok {
		return 0
	}
	return frame.Line
}

// SetCollectMemory pushes the runtime toggle into the request's
// profiler binding.
func (r *Request) SetCollectMemory(enabled bool) {
	r.session.SetCollectMemory(enabled)
}

// SetCollectTime pushes the runtime toggle into the request's profiler
// binding.
func (r *Request) SetCollectTime(enabled bool) {
	r.session.SetCollectTime(enabled)
}

// DumpContext captures the request context groups selected by the dump
// configuration. A value of "*" captures the whole group, otherwise only
// the named keys are taken.
func (r *Request) DumpContext() map[string]map[string]string {
	groups := map[string]map[string]string{
		"COOKIE": r.ctx.Cookie,
		"GET":    r.ctx.Get,
		"POST":   r.ctx.Post,
		"SERVER": r.ctx.Server,
	}

	capture := make(map[string]map[string]string)
	for group, selector := range r.controller.config.Dump() {
		source, ok := groups[group]
		if !ok || selector == "" {
			continue
		}

		taken := make(map[string]string)
		if selector == "*" {
			for key, value := range source {
				taken[key] = value
			}
		} else {
			for _, key := range strings.Split(selector, ",") {
				key = strings.TrimSpace(key)
				if value, ok := source[key]; ok {
					taken[key] = value
				}
			}
		}

		if len(taken) > 0 {
			capture[group] = taken
		}
	}

	return capture
}

// flush records runs for sinks still active at request shutdown.
func (r *Request) flush() {
	duration := r.session.TimeIndex()

	if path, ok := r.session.StopTrace(); ok {
		r.record(RunKindTrace, path, duration)
	}
	if path, ok := r.session.StopProfile(); ok {
		r.record(RunKindProfile, path, duration)
	}
}

func (r *Request) record(kind, path string, duration float64) {
	r.controller.RecordRun(kind, path, duration, r.PeakMemoryUsage(), r.ctx, r.DumpContext())
}
