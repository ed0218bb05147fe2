// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package stage wraps a processor.Processor as a supervised suture.Service:
// one goroutine per stage, driven by the Pipeline Manager's supervisor
// tree, with automatic restart disabled. A stage that fails terminates the
// pipeline's shutdown sequence rather than being silently relaunched.
package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/liminal-stream/engine/internal/logging"
	"github.com/liminal-stream/engine/internal/metrics"
	"github.com/liminal-stream/engine/internal/processor"
	"github.com/liminal-stream/engine/internal/timing"
)

// Stage drives one processor's lifecycle: Init once, then repeated Process
// calls until the context is cancelled or Process returns an error.
type Stage struct {
	name      string
	proc      processor.Processor
	pc        *processor.ProcessingContext
	timingCfg timing.Config
	logger    zerolog.Logger
}

// New constructs a Stage. pc must already have every input subscribed and,
// if the stage has an output, attached.
func New(name string, proc processor.Processor, pc *processor.ProcessingContext, timingCfg timing.Config) *Stage {
	return &Stage{
		name:      name,
		proc:      proc,
		pc:        pc,
		timingCfg: timingCfg,
		logger:    logging.ComponentFor("stage", name),
	}
}

// Serve implements suture.Service. It initialises the processor once, then
// calls Process in a loop until ctx is cancelled or Process returns a
// non-nil error. On processor error the returned error is joined with
// suture.ErrDoNotRestart so the owning supervisor does not relaunch the
// stage — a single failed Process call terminates the stage for good,
// matching the specification's single-attempt policy rather than suture's
// usual automatic-restart behaviour.
func (s *Stage) Serve(ctx context.Context) error {
	if err := s.proc.Init(ctx); err != nil {
		s.logger.Error().Err(err).Msg("stage init failed")
		metrics.RecordStageError(s.name, "init")
		return errors.Join(fmt.Errorf("stage %q: init: %w", s.name, err), suture.ErrDoNotRestart)
	}
	s.logger.Info().Msg("stage started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("stage stopping")
			return ctx.Err()
		default:
		}

		start := time.Now()
		err := s.proc.Process(ctx, s.pc)
		metrics.ObserveStageProcess(s.name, time.Since(start))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Msg("stage process failed, stage will not be restarted")
			metrics.RecordStageError(s.name, "process")
			return errors.Join(fmt.Errorf("stage %q: process: %w", s.name, err), suture.ErrDoNotRestart)
		}
	}
}

// String implements fmt.Stringer so suture can name this service in logs.
func (s *Stage) String() string {
	return s.name
}

// Name returns the stage's configured name.
func (s *Stage) Name() string {
	return s.name
}
