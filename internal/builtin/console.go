// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/logging"
	"github.com/liminal-stream/engine/internal/processor"
)

func init() {
	processor.Register("console", newConsoleProcessor)
	processor.Register("log", newConsoleProcessor)
}

// consoleProcessor is an output stage that logs every received message at
// info level, grounded on the reference implementation's
// ConsoleOutputProcessor / ConsoleLogProcessor (both types map to the same
// behaviour in this engine).
type consoleProcessor struct {
	name string
	log  zerolog.Logger
}

func newConsoleProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	return &consoleProcessor{name: name, log: logging.ComponentFor("console", name)}, nil
}

func (p *consoleProcessor) Init(ctx context.Context) error { return nil }

func (p *consoleProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	received := false
	for name, sub := range pc.Inputs {
		msg, ok := sub.TryRecv()
		if !ok {
			continue
		}
		received = true
		p.log.Info().
			Str("input", name).
			Str("source", msg.Source).
			Str("topic", msg.Topic).
			Time("event_time", msg.Timing.EventTime).
			Time("ingestion_time", msg.Timing.IngestionTime).
			Interface("payload", msg.Payload).
			Msg("message received")
	}
	if !received {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idleDelay):
		}
	}
	return nil
}
