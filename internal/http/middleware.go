/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tschaefer/wren/internal/controller"
	"github.com/tschaefer/wren/internal/request"
	"github.com/tschaefer/wren/internal/session"
)

type instrumentationKey struct{}

// Instrument wraps the application handler with per-request
// instrumentation. The request's profiler slot is claimed on entry when
// needed and unconditionally released when the handler returns, runs
// still active at that point get recorded.
func (s *Server) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := request.FromHTTP(r)
		ctx.Nested = API(r) != nil
		req := s.controller.BindRequest(ctx)

		if err := req.Init(); err != nil {
			if errors.Is(err, session.ErrProfilerConflict) {
				s.log(r, slog.LevelError, "Profiler slot already taken", "id", ctx.UniqueID())
			} else {
				s.log(r, slog.LevelError, "Failed to initialize instrumentation", "id", ctx.UniqueID(), "error", err)
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		s.registry.add(ctx.UniqueID(), req)
		defer func() {
			s.registry.remove(ctx.UniqueID())
			req.Shutdown()
		}()

		r = r.WithContext(context.WithValue(r.Context(), instrumentationKey{}, req))
		next.ServeHTTP(w, r)
	})
}

// API returns the instrumentation surface of the current request, nil
// when the request did not pass through the Instrument middleware.
func API(r *http.Request) *controller.Request {
	req, _ := r.Context().Value(instrumentationKey{}).(*controller.Request)
	return req
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// registry tracks the instrumentation bindings of requests currently in
// flight, so runtime toggles reach them.
type registry struct {
	mu       sync.Mutex
	requests map[string]*controller.Request
}

func newRegistry() *registry {
	return &registry{
		requests: make(map[string]*controller.Request),
	}
}

func (g *registry) add(id string, req *controller.Request) {
	g.mu.Lock()
	g.requests[id] = req
	g.mu.Unlock()
}

func (g *registry) remove(id string) {
	g.mu.Lock()
	delete(g.requests, id)
	g.mu.Unlock()
}

func (g *registry) each(f func(*controller.Request)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, req := range g.requests {
		f(req)
	}
}
