/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"fmt"
	"log/slog"

	"github.com/tschaefer/wren/internal/config"
	"github.com/tschaefer/wren/internal/model"
	"github.com/tschaefer/wren/internal/profiler"
)

// Controller ties the profiler machinery to the run history. It hands
// out one Request binding per served request and manages recorded runs.
type Controller struct {
	config  *config.Config
	model   *model.Model
	factory *profiler.Factory
}

func New(model *model.Model, cfg *config.Config, factory *profiler.Factory) *Controller {
	slog.Debug("Initializing Controller", "model", fmt.Sprintf("%T", model), "config", fmt.Sprintf("%T", cfg))

	return &Controller{
		model:   model,
		config:  cfg,
		factory: factory,
	}
}
