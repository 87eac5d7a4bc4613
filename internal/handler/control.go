/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

func (h *Handler) registerControlHandlers() {
	h.router.HandleFunc("/api/v1/status", h.GetStatus).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/settings", h.GetSettings).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/settings", h.PatchSettings).Methods(http.MethodPatch)
	h.router.HandleFunc("/api/v1/token", h.CreateToken).Methods(http.MethodPost)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"enable":         h.config.Enabled(),
		"collect_memory": h.config.CollectMemory(),
		"collect_time":   h.config.CollectTime(),
	}

	h.makeResponse(w, http.StatusOK, status)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.makeResponse(w, http.StatusOK, h.config.Settings())
}

// PatchSettings flips the runtime collection toggles. All other settings
// are fixed at load time and rejected here.
func (h *Handler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	type payload struct {
		CollectMemory *bool `json:"collect_memory"`
		CollectTime   *bool `json:"collect_time"`
	}
	var p payload

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.makeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if p.CollectMemory == nil && p.CollectTime == nil {
		h.makeError(w, http.StatusBadRequest, "no runtime toggle in request body")
		return
	}

	if p.CollectMemory != nil {
		h.config.SetCollectMemory(*p.CollectMemory)
	}
	if p.CollectTime != nil {
		h.config.SetCollectTime(*p.CollectTime)
	}

	h.makeResponse(w, http.StatusOK, map[string]bool{
		"collect_memory": h.config.CollectMemory(),
		"collect_time":   h.config.CollectTime(),
	})
}

// CreateToken issues a control token for the run event feed.
func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	type payload struct {
		ExpirationSeconds int `json:"expiration_seconds"`
	}
	var p payload

	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			h.makeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	token, expiresAt, err := h.controller.GenerateControlToken(time.Duration(p.ExpirationSeconds) * time.Second)
	if err != nil {
		h.makeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.makeResponse(w, http.StatusCreated, map[string]string{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}
