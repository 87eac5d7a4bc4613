/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package manager

import (
	"context"
	"log/slog"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tschaefer/wren/internal/config"
	"github.com/tschaefer/wren/internal/controller"
	"github.com/tschaefer/wren/internal/database"
	"github.com/tschaefer/wren/internal/handler"
	"github.com/tschaefer/wren/internal/http"
	"github.com/tschaefer/wren/internal/model"
	"github.com/tschaefer/wren/internal/monitor"
	"github.com/tschaefer/wren/internal/profiler"
	"github.com/tschaefer/wren/internal/version"
)

type Manager struct {
	config     *config.Config
	database   *database.Database
	model      *model.Model
	factory    *profiler.Factory
	controller *controller.Controller
	monitor    monitor.Monitor
	app        nethttp.Handler
}

// New loads the configuration and assembles the service. app is the
// application handler served behind the instrumentation middleware; nil
// installs a plain health responder.
func New(cfgFile string, app nethttp.Handler) (*Manager, error) {
	slog.Debug("Initializing Manager", "cfgFile", cfgFile)

	cfg, err := config.Read(cfgFile)
	if err != nil {
		return nil, err
	}

	mon := monitor.New(cfg, false)
	if err := mon.Run(); err != nil {
		slog.Warn("Failed to start Pyroscope monitor", "error", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		return nil, err
	}

	m := model.New(db.Connection())
	factory := profiler.NewFactory()
	ctrl := controller.New(m, cfg, factory)

	if app == nil {
		app = nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			w.WriteHeader(nethttp.StatusOK)
			_, _ = w.Write([]byte("wren"))
		})
	}

	return &Manager{
		config:     cfg,
		database:   db,
		model:      m,
		factory:    factory,
		controller: ctrl,
		monitor:    mon,
		app:        app,
	}, nil
}

// Run serves the instrumented application on listenAddr and the control
// API on apiListenAddr until SIGINT or SIGTERM.
func (m *Manager) Run(listenAddr, apiListenAddr string) {
	slog.Debug("Running Manager", "listenAddr", listenAddr, "apiListenAddr", apiListenAddr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	slog.Info("Starting wren instrumentation server", "release", version.Release(), "commit", version.Commit())
	slog.Info("Listening on " + listenAddr)
	slog.Info("Control API listening on " + apiListenAddr)

	appServer := http.NewServer(listenAddr, m.app, m.controller, m.model, m.config)
	if err := appServer.Start(); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	apiServer, err := m.runAPIServer(apiListenAddr)
	if err != nil {
		slog.Error("Failed to start control API server", "error", err)
		os.Exit(1)
	}

	<-stop
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = appServer.Stop(ctx)
	_ = apiServer.Shutdown(ctx)
	m.monitor.Stop()

	slog.Info("Server stopped")
}

func (m *Manager) runAPIServer(addr string) (*nethttp.Server, error) {
	listen, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	server := &nethttp.Server{
		Addr:         addr,
		Handler:      handler.New(m.controller, m.config).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.Serve(listen); err != nil && err != nethttp.ErrServerClosed {
			slog.Error("Control API server error", "error", err)
		}
	}()

	return server, nil
}
