/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package coverage

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrUnsupportedOption is returned when Start is handed option flags.
// Line coverage is the only supported mode; callers asking for more get
// a hard error instead of silently degraded data.
var ErrUnsupportedOption = errors.New("coverage options are not supported, only plain line coverage is available")

// Collector gathers per-line execution counts for a single request.
// Counts accumulate across start/stop cycles until explicitly reset.
type Collector struct {
	mu      sync.Mutex
	started bool
	hits    map[string]map[int]int
}

func NewCollector() *Collector {
	return &Collector{
		hits: make(map[string]map[int]int),
	}
}

// Start begins collecting line counts. options must be zero. Starting a
// collector that is already running is advisory only, collection simply
// continues.
func (c *Collector) Start(options int64) error {
	if options != 0 {
		return ErrUnsupportedOption
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		slog.Warn("Code coverage is already being collected")
		return nil
	}

	c.started = true
	return nil
}

// Stop ends collection. With reset the gathered counts are discarded,
// otherwise they stay readable through Report. Stopping a stopped
// collector is a no-op.
func (c *Collector) Stop(reset bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = false
	if reset {
		c.hits = make(map[string]map[int]int)
	}
}

// Started reports whether the collector is currently gathering counts.
func (c *Collector) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Count records one execution of the given file and line. Ignored while
// the collector is stopped.
func (c *Collector) Count(file string, line int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}

	lines, ok := c.hits[file]
	if !ok {
		lines = make(map[int]int)
		c.hits[file] = lines
	}
	lines[line]++
}

// Report returns a copy of the gathered counts keyed by file and line.
// The copy is safe to hold after the collector is reset.
func (c *Collector) Report() map[string]map[int]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := make(map[string]map[int]int, len(c.hits))
	for file, lines := range c.hits {
		copied := make(map[int]int, len(lines))
		for line, count := range lines {
			copied[line] = count
		}
		report[file] = copied
	}
	return report
}
