/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package profiler

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

type frame struct {
	function string
	started  time.Time
}

type cost struct {
	calls  int64
	micros int64
}

// Engine is the file-backed Profiler implementation. The trace sink writes
// one line per function entry (and exit, in computerized format) while
// tracing is enabled; the profile sink aggregates per-function costs and
// writes a cachegrind-style summary on disable.
type Engine struct {
	mu      sync.Mutex
	started time.Time

	collectMemory bool
	collectTime   bool

	traceFile    *os.File
	tracePath    string
	traceOptions int64
	stack        []frame
	frameCount   int64

	profilePath   string
	profileAppend bool
	profile       map[string]*cost
}

// NewEngine returns a detached engine with both sinks disabled. The engine
// clock starts now; trace time indices are relative to it.
func NewEngine() *Engine {
	return &Engine{
		started: time.Now(),
		profile: map[string]*cost{},
	}
}

func (e *Engine) EnableTracing(path string, options int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.traceFile != nil {
		return fmt.Errorf("trace sink already enabled: %s", e.tracePath)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options&TraceAppend != 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open trace file %s: %v", path, err)
	}

	e.traceFile = file
	e.tracePath = path
	e.traceOptions = options
	e.writeTraceHeader()

	return nil
}

func (e *Engine) DisableTracing() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.traceFile == nil {
		return
	}

	e.writeTraceFooter()
	if err := e.traceFile.Close(); err != nil {
		slog.Warn("Failed to close trace file", "path", e.tracePath, "error", err)
	}

	e.traceFile = nil
	e.tracePath = ""
	e.traceOptions = 0
	e.stack = nil
}

func (e *Engine) EnableProfiling(path string, options int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.profilePath != "" {
		return fmt.Errorf("profile sink already enabled: %s", e.profilePath)
	}

	e.profilePath = path
	e.profileAppend = options&ProfileAppend != 0
	e.profile = map[string]*cost{}

	return nil
}

func (e *Engine) DisableProfiling() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.profilePath == "" {
		return
	}

	if err := e.writeProfile(); err != nil {
		slog.Warn("Failed to write profile", "path", e.profilePath, "error", err)
	}

	e.profilePath = ""
	e.profile = map[string]*cost{}
}

func (e *Engine) IsTracing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.traceFile != nil
}

func (e *Engine) IsProfiling() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profilePath != ""
}

func (e *Engine) IsCollecting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.traceFile != nil || e.profilePath != ""
}

func (e *Engine) TracingFilename() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracePath
}

func (e *Engine) ProfilingFilename() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profilePath
}

func (e *Engine) BeginFrame(function string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stack = append(e.stack, frame{function: function, started: time.Now()})
	e.frameCount++

	if e.traceFile != nil {
		e.writeTraceLine(function, len(e.stack)-1, true)
	}
}

func (e *Engine) EndFrame(function string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.stack) == 0 {
		return
	}

	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]

	if e.traceFile != nil && e.traceOptions&TraceComputerized != 0 {
		e.writeTraceLine(function, len(e.stack), false)
	}

	if e.profilePath != "" {
		sample, ok := e.profile[top.function]
		if !ok {
			sample = &cost{}
			e.profile[top.function] = sample
		}
		sample.calls++
		sample.micros += time.Since(top.started).Microseconds()
	}
}

func (e *Engine) SetCollectMemory(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collectMemory = enabled
}

func (e *Engine) SetCollectTime(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collectTime = enabled
}

func (e *Engine) timeIndex() float64 {
	if !e.collectTime {
		return 0
	}
	return time.Since(e.started).Seconds()
}

func (e *Engine) memoryUsage() uint64 {
	if !e.collectMemory {
		return 0
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

func (e *Engine) writeTraceHeader() {
	stamp := time.Now().Format("2006-01-02 15:04:05")
	switch {
	case e.traceOptions&TraceHTML != 0:
		fmt.Fprintf(e.traceFile, "<table>\n<tr><th>#</th><th>time</th><th>memory</th><th>function</th></tr>\n")
	case e.traceOptions&TraceComputerized != 0:
		fmt.Fprintf(e.traceFile, "Version: 1\nFile format: 2\nTRACE START [%s]\n", stamp)
	default:
		fmt.Fprintf(e.traceFile, "TRACE START [%s]\n", stamp)
	}
}

func (e *Engine) writeTraceFooter() {
	stamp := time.Now().Format("2006-01-02 15:04:05")
	switch {
	case e.traceOptions&TraceHTML != 0:
		fmt.Fprint(e.traceFile, "</table>\n")
	default:
		fmt.Fprintf(e.traceFile, "TRACE END   [%s]\n", stamp)
	}
}

func (e *Engine) writeTraceLine(function string, depth int, entry bool) {
	index := e.timeIndex()
	memory := e.memoryUsage()

	switch {
	case e.traceOptions&TraceHTML != 0:
		fmt.Fprintf(e.traceFile, "<tr><td>%d</td><td>%.6f</td><td>%d</td><td>%s</td></tr>\n",
			depth, index, memory, function)
	case e.traceOptions&TraceComputerized != 0:
		marker := "0"
		if !entry {
			marker = "1"
		}
		fmt.Fprintf(e.traceFile, "%d\t%d\t%s\t%.6f\t%d\t%s\n",
			depth, e.frameCount, marker, index, memory, function)
	default:
		fmt.Fprintf(e.traceFile, "%10.4f %10d %s-> %s\n",
			index, memory, strings.Repeat("  ", depth), function)
	}
}

func (e *Engine) writeProfile() error {
	flags := os.O_CREATE | os.O_WRONLY
	if e.profileAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(e.profilePath, flags, 0644)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	fmt.Fprint(file, "version: 1\ncreator: wren\nevents: Time\n\n")

	functions := make([]string, 0, len(e.profile))
	for function := range e.profile {
		functions = append(functions, function)
	}
	sort.Strings(functions)

	for _, function := range functions {
		sample := e.profile[function]
		fmt.Fprintf(file, "fn=%s\ncalls=%d\n0 %d\n\n", function, sample.calls, sample.micros)
	}

	return nil
}
