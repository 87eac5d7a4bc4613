/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gorilla/mux"
	"github.com/tschaefer/wren/internal/controller"
	"github.com/tschaefer/wren/internal/model"
)

func (h *Handler) registerRunHandlers() {
	h.router.HandleFunc("/api/v1/run", h.ListRuns).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/run/{rid}", h.GetRun).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/run/{rid}", h.DeleteRun).Methods(http.MethodDelete)
	h.router.HandleFunc("/api/v1/run/{rid}/download", h.DownloadRun).Methods(http.MethodGet)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.controller.ListRuns()
	if err != nil {
		h.makeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, runs)
}

// GetRun returns a single run. The context capture is decrypted by the
// controller and attached to the payload; only this authenticated
// endpoint ever serves it in the clear.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	run, err := h.controller.GetRun(rid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	payload := struct {
		*model.Run
		Capture json.RawMessage `json:"capture,omitempty"`
	}{Run: run}
	if run.Dump != "" {
		payload.Capture = json.RawMessage(run.Dump)
	}

	h.makeResponse(w, http.StatusOK, payload)
}

func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	if err := h.controller.DeleteRun(rid); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusNoContent, nil)
}

// DownloadRun streams the recorded trace or profile file.
func (h *Handler) DownloadRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	run, err := h.controller.GetRun(rid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	file, err := os.Open(run.Path)
	if err != nil {
		h.makeError(w, http.StatusGone, "run output no longer available")
		return
	}
	defer file.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", path.Base(run.Path)))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, path.Base(run.Path), time.Now(), file)
}
