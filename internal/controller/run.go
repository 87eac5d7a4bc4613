/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tschaefer/wren/internal/aes"
	"github.com/tschaefer/wren/internal/model"
	"github.com/tschaefer/wren/internal/request"
)

var (
	ErrRunNotFound = errors.New("run not found")
)

const (
	RunKindTrace   = model.RunKindTrace
	RunKindProfile = model.RunKindProfile
)

// RecordRun stores a finished instrumentation output in the run history.
// The context capture is encrypted with the shared secret before it
// touches the database. Recording failures are logged, a lost history
// row must not fail the request.
func (c *Controller) RecordRun(kind, path string, duration float64, peakMemory uint64, ctx *request.Context, capture map[string]map[string]string) {
	run := &model.Run{
		ResourceId: fmt.Sprintf("rid:wren:run:%s", uuid.New().String()),
		Kind:       kind,
		Path:       path,
		Host:       ctx.Server[request.HttpHost],
		RequestURI: ctx.Server[request.RequestURI],
		RequestId:  ctx.UniqueID(),
		StartedAt:  time.Now().Add(-time.Duration(duration * float64(time.Second))),
		Duration:   duration,
		PeakMemory: peakMemory,
	}

	if len(capture) > 0 {
		raw, err := json.Marshal(capture)
		if err == nil {
			run.Dump, err = aes.Encrypt(c.config.Secret(), raw)
		}
		if err != nil {
			slog.Warn("Failed to encrypt context capture", "rid", run.ResourceId, "error", err)
			run.Dump = ""
		}
	}

	if _, err := c.model.CreateRun(run); err != nil {
		slog.Warn("Failed to record run", "rid", run.ResourceId, "error", err)
	}
}

func (c *Controller) ListRuns() ([]map[string]string, error) {
	runs := []model.Run{}
	_, err := c.model.ListRuns(&runs)
	if err != nil {
		return nil, err
	}

	list := make([]map[string]string, 0, len(runs))
	for _, run := range runs {
		entry := map[string]string{
			"rid":  run.ResourceId,
			"kind": run.Kind,
			"path": run.Path,
		}
		list = append(list, entry)
	}

	return list, nil
}

// GetRun returns a recorded run with the context capture decrypted.
func (c *Controller) GetRun(rid string) (*model.Run, error) {
	run, err := c.model.GetRun(&model.Run{ResourceId: rid})
	if err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	if run.Dump != "" {
		dump, err := aes.Decrypt(c.config.Secret(), run.Dump)
		if err != nil {
			return nil, err
		}
		run.Dump = string(dump)
	}

	return run, nil
}

func (c *Controller) DeleteRun(rid string) error {
	run, err := c.model.GetRun(&model.Run{ResourceId: rid})
	if err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			return ErrRunNotFound
		}
		return err
	}

	return c.model.DeleteRun(run)
}
