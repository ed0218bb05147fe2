// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"context"
	"fmt"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/processor"
)

func init() {
	processor.Register("rename", newRenameProcessor)
}

// renameProcessor copies (or moves) fields under new names, grounded on the
// reference implementation's RenameProcessor.
type renameProcessor struct {
	name         string
	fieldConfig  processor.FieldConfig
	dropOriginal bool
}

func newRenameProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	fc := processor.ExtractFieldParams(cfg.Parameters)
	if fc.Kind == processor.FieldConfigNone {
		return nil, fmt.Errorf("rename %q: requires a field mapping", name)
	}
	return &renameProcessor{
		name:         name,
		fieldConfig:  fc,
		dropOriginal: processor.ExtractParam(cfg.Parameters, "drop_original", true),
	}, nil
}

func (p *renameProcessor) Init(ctx context.Context) error { return nil }

func (p *renameProcessor) transform(payload any) map[string]any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return map[string]any{}
	}

	result := map[string]any{}
	if !p.dropOriginal {
		for k, v := range obj {
			result[k] = v
		}
	}

	switch p.fieldConfig.Kind {
	case processor.FieldConfigSingle:
		if v, ok := obj[p.fieldConfig.Input]; ok {
			result[p.fieldConfig.Output] = v
		}
	case processor.FieldConfigMultiple:
		for i, in := range p.fieldConfig.Inputs {
			if i >= len(p.fieldConfig.Outputs) {
				break
			}
			if v, ok := obj[in]; ok {
				result[p.fieldConfig.Outputs[i]] = v
			}
		}
	case processor.FieldConfigMapping:
		for in, out := range p.fieldConfig.Mapping {
			if v, ok := obj[in]; ok {
				result[out] = v
			}
		}
	}
	return result
}

func (p *renameProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	_, sub, ok := pc.FirstInput()
	if !ok {
		return nil
	}
	in, ok := sub.Recv()
	if !ok {
		return nil
	}

	out := message.Propagate(in, p.name, outputTopic(pc, p.name), p.transform(in.Payload))
	return pc.Publish(out)
}
