// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/processor"
)

func init() {
	processor.Register("simulated", newSimulatedProcessor)
}

type simulatedConfig struct {
	intervalMS   uint64
	distribution string
	minValue     float64
	maxValue     float64
	valueName    string
}

func simulatedConfigFromStage(cfg config.StageConfig) simulatedConfig {
	fc := processor.ExtractFieldParams(cfg.Parameters)
	valueName := "value"
	if fc.Kind == processor.FieldConfigOutputOnly {
		valueName = fc.OutputOnlyField
	}
	return simulatedConfig{
		intervalMS:   processor.ExtractParam(cfg.Parameters, "interval_ms", uint64(1000)),
		distribution: processor.ExtractParam(cfg.Parameters, "distribution", "uniform"),
		minValue:     processor.ExtractParam(cfg.Parameters, "min_value", 0.0),
		maxValue:     processor.ExtractParam(cfg.Parameters, "max_value", 100.0),
		valueName:    valueName,
	}
}

// simulatedProcessor is an input stage that emits synthetic readings on a
// fixed interval, grounded on the reference implementation's
// SimulatedSignalProcessor.
type simulatedProcessor struct {
	name string
	cfg  simulatedConfig
}

func newSimulatedProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	return &simulatedProcessor{name: name, cfg: simulatedConfigFromStage(cfg)}, nil
}

func (p *simulatedProcessor) Init(ctx context.Context) error { return nil }

func (p *simulatedProcessor) sample() float64 {
	switch p.cfg.distribution {
	case "normal":
		mean := (p.cfg.minValue + p.cfg.maxValue) / 2
		stddev := (p.cfg.maxValue - p.cfg.minValue) / 6
		v := rand.NormFloat64()*stddev + mean
		if v < p.cfg.minValue {
			v = p.cfg.minValue
		}
		if v > p.cfg.maxValue {
			v = p.cfg.maxValue
		}
		return v
	default:
		return p.cfg.minValue + rand.Float64()*(p.cfg.maxValue-p.cfg.minValue)
	}
}

func (p *simulatedProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	select {
	case <-time.After(time.Duration(p.cfg.intervalMS) * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	value := p.sample()
	topic := p.name
	if pc.Output != nil {
		topic = pc.Output.Name
	}

	msg := message.New(p.name, topic, map[string]any{p.cfg.valueName: value})
	if err := pc.Publish(msg); err != nil {
		return fmt.Errorf("simulated %q: publish: %w", p.name, err)
	}
	return nil
}
