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
	processor.Register("lowpass", newLowPassProcessor)
}

// lowPassProcessor forwards every input message unchanged. The reference
// implementation's low-pass filter stage is itself a pass-through stub
// (the threshold parameter is accepted but not yet applied to any signal),
// behaviour this engine preserves rather than invents smoothing logic for.
type lowPassProcessor struct {
	name      string
	threshold float64
}

func newLowPassProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	return &lowPassProcessor{
		name:      name,
		threshold: processor.ExtractParam(cfg.Parameters, "threshold", 0.5),
	}, nil
}

func (p *lowPassProcessor) Init(ctx context.Context) error { return nil }

func (p *lowPassProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	_, err := drainAndForward(ctx, pc, p.name)
	return err
}
