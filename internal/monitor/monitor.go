/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package monitor

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/grafana/pyroscope-go"
	"github.com/tschaefer/wren/internal/config"
)

// Monitor pushes continuous profiles of the wren service itself to a
// Pyroscope server. Not to be confused with the per-request profiler,
// this watches the watcher.
type Monitor interface {
	Run() error
	Stop()
}

type monitor struct {
	instance *pyroscope.Profiler
	config   pyroscope.Config
	enabled  bool
}

// New builds a monitor from the configured server address. An empty
// address disables self-monitoring, Run becomes a no-op.
func New(config *config.Config, logging bool) Monitor {
	slog.Debug("Initializing Pyroscope monitor", "serverAddress", config.Monitor(), "logging", logging)

	var logger pyroscope.Logger
	if logging {
		logger = pyroscope.StandardLogger
	} else {
		logger = nil
	}

	cfg := pyroscope.Config{
		ApplicationName: "wren",
		ServerAddress:   config.Monitor(),
		Logger:          logger,
		Tags:            map[string]string{"hostname": os.Getenv("HOSTNAME")},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	}
	return &monitor{config: cfg, enabled: config.Monitor() != ""}
}

func (m *monitor) Run() error {
	if !m.enabled {
		slog.Debug("Pyroscope monitor disabled")
		return nil
	}

	slog.Debug("Starting Pyroscope monitor", "config", m.config)

	runtime.SetMutexProfileFraction(5)
	runtime.SetBlockProfileRate(5)

	instance, err := pyroscope.Start(m.config)
	m.instance = instance

	return err
}

func (m *monitor) Stop() {
	slog.Debug("Stopping Pyroscope monitor")
	if m.instance != nil {
		_ = m.instance.Stop()
	}
}
