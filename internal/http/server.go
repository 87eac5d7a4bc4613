/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tschaefer/wren/internal/auth"
	"github.com/tschaefer/wren/internal/config"
	"github.com/tschaefer/wren/internal/controller"
	"github.com/tschaefer/wren/internal/model"
)

// Server hosts the instrumented application handler and the run event
// feed. Every application request passes through the instrumentation
// middleware; the feed sits behind control token auth.
type Server struct {
	controller *controller.Controller
	config     *config.Config
	model      *model.Model
	server     *http.Server
	registry   *registry
}

func NewServer(addr string, app http.Handler, ctrl *controller.Controller, m *model.Model, cfg *config.Config) *Server {
	slog.Debug("Initializing HTTP Server", "addr", addr)

	mux := http.NewServeMux()

	s := &Server{
		controller: ctrl,
		config:     cfg,
		model:      m,
		registry:   newRegistry(),
		server: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
	}

	// Runtime toggles flipped through the control API propagate into
	// every request currently holding a profiler binding.
	cfg.OnCollectMemory(func(value bool) {
		s.registry.each(func(req *controller.Request) {
			req.SetCollectMemory(value)
		})
	})
	cfg.OnCollectTime(func(value bool) {
		s.registry.each(func(req *controller.Request) {
			req.SetCollectTime(value)
		})
	})

	feedAuth := auth.NewMiddleware(ctrl.ValidateControlToken)
	secureFeed := s.securityHeaders(feedAuth.Wrap(http.HandlerFunc(s.handleFeed)))
	mux.Handle("/ws", secureFeed)

	mux.Handle("/", s.securityHeaders(s.Instrument(app)))

	return s
}

func (s *Server) Start() error {
	listen, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	go func() {
		if err := s.server.Serve(listen); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
