// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"context"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/processor"
)

func init() {
	processor.Register("scale", newScaleProcessor)
}

// scaleProcessor multiplies one or more numeric fields by a fixed factor,
// grounded on the reference implementation's ScaleProcessor.
type scaleProcessor struct {
	name        string
	scaleFactor float64
	fieldConfig processor.FieldConfig
}

func newScaleProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	return &scaleProcessor{
		name:        name,
		scaleFactor: processor.ExtractParam(cfg.Parameters, "scale_factor", 0.5),
		fieldConfig: processor.ExtractFieldParams(cfg.Parameters),
	}, nil
}

func (p *scaleProcessor) Init(ctx context.Context) error { return nil }

func (p *scaleProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	_, sub, ok := pc.FirstInput()
	if !ok {
		return nil
	}

	in, ok := sub.Recv()
	if !ok {
		return nil
	}

	payload := scaleFields(in.Payload, p.fieldConfig, p.scaleFactor)
	out := message.Propagate(in, p.name, outputTopic(pc, p.name), payload)
	return pc.Publish(out)
}

func scaleFields(payload any, fc processor.FieldConfig, factor float64) map[string]any {
	result := map[string]any{}
	m, ok := payload.(map[string]any)
	if !ok {
		return result
	}

	switch fc.Kind {
	case processor.FieldConfigSingle:
		if v, ok := numeric(m[fc.Input]); ok {
			result[fc.Output] = v * factor
		}
	case processor.FieldConfigMultiple:
		for i, in := range fc.Inputs {
			if i >= len(fc.Outputs) {
				break
			}
			if v, ok := numeric(m[in]); ok {
				result[fc.Outputs[i]] = v * factor
			}
		}
	}
	return result
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func outputTopic(pc *processor.ProcessingContext, fallback string) string {
	if pc.Output != nil {
		return pc.Output.Name
	}
	return fallback
}
