// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package processor defines the Processor contract, the process-wide
// factory of named constructors, and the per-processor configuration
// helpers (field mapping, parameter extraction) shared by every built-in
// processor.
package processor

import (
	"context"

	"github.com/liminal-stream/engine/internal/config"
)

// Processor is the behavioural core of a Stage.
type Processor interface {
	// Init is called exactly once, before any Process call, after all
	// inputs/outputs have been attached. Used to open external resources.
	Init(ctx context.Context) error
	// Process is called repeatedly by the stage's run loop; each call
	// should perform one unit of work and must return promptly or select
	// on ctx.Done() so the stage's cooperative cancellation is honoured.
	Process(ctx context.Context, pc *ProcessingContext) error
}

// Constructor builds a Processor from a stage name and its StageConfig.
type Constructor func(name string, cfg config.StageConfig) (Processor, error)
