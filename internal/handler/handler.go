/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tschaefer/wren/internal/config"
	"github.com/tschaefer/wren/internal/controller"
)

// Handler serves the control REST API. All routes sit behind basic
// auth with the configured service credentials.
type Handler struct {
	controller *controller.Controller
	config     *config.Config
	router     *mux.Router
}

func New(ctrl *controller.Controller, cfg *config.Config) *Handler {
	slog.Debug("Initializing Handler", "ctrl", fmt.Sprintf("%T", ctrl), "cfg", fmt.Sprintf("%T", cfg))

	router := mux.NewRouter()

	return &Handler{
		controller: ctrl,
		router:     router,
		config:     cfg,
	}
}

func (h *Handler) Router() *mux.Router {
	h.router.NotFoundHandler = http.HandlerFunc(h.notFound)
	h.router.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)
	h.router.Use(h.basicAuth)
	h.registerRunHandlers()
	h.registerControlHandlers()
	h.registerSupportHandlers()

	return h.router
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Route not found", "path", r.URL.Path)

	h.makeLog(r, http.StatusNotFound, slog.LevelWarn, "route not found")
	h.makeError(w, http.StatusNotFound, "route not found")
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.makeLog(r, http.StatusMethodNotAllowed, slog.LevelWarn, "method not allowed")
	h.makeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (h *Handler) makeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(map[string]string{"detail": message})
}

func (h *Handler) makeResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		u, p := h.config.Credentials()

		if !ok || username != u || password != p {
			h.makeLog(r, http.StatusUnauthorized, slog.LevelWarn, "unauthorized")
			h.makeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) makeLog(r *http.Request, status int, level slog.Level, msg string) {
	args := []any{
		slog.String("RemoteAddr", r.RemoteAddr),
		slog.String("UserAgent", r.UserAgent()),
		slog.Int("Status", status),
		slog.String("RequestMethod", r.Method),
		slog.String("RequestPath", r.RequestURI),
	}

	switch level {
	case slog.LevelInfo:
		slog.Info(msg, args...)
	case slog.LevelWarn:
		slog.Warn(msg, args...)
	case slog.LevelError:
		slog.Error(msg, args...)
	default:
		slog.Info(msg, args...)
	}
}
