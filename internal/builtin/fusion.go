// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"context"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/processor"
)

func init() {
	processor.Register("fusion", newFusionProcessor)
}

// fusionProcessor merges multiple input streams onto a single output,
// grounded on the reference implementation's FusionStage, which is itself a
// pass-through placeholder ahead of a real sensor-fusion algorithm.
type fusionProcessor struct {
	name string
}

func newFusionProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	return &fusionProcessor{name: name}, nil
}

func (p *fusionProcessor) Init(ctx context.Context) error { return nil }

func (p *fusionProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	_, err := drainAndForward(ctx, pc, p.name)
	return err
}
