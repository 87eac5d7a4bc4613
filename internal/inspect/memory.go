/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package inspect

import (
	"runtime"
	"sync"
)

// Meter tracks heap allocation usage and its observed high-water mark.
// The runtime does not expose a peak figure, so the meter keeps the
// largest value it has seen across reads.
type Meter struct {
	mu   sync.Mutex
	peak uint64
}

func NewMeter() *Meter {
	return &Meter{}
}

// Usage returns the current heap allocation in bytes and advances the
// high-water mark if exceeded.
func (m *Meter) Usage() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	m.mu.Lock()
	if stats.HeapAlloc > m.peak {
		m.peak = stats.HeapAlloc
	}
	m.mu.Unlock()

	return stats.HeapAlloc
}

// PeakUsage returns the largest heap allocation observed so far, sampling
// the current usage first so the mark is never behind a fresh read.
func (m *Meter) PeakUsage() uint64 {
	m.Usage()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}
