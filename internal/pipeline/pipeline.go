// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package pipeline implements the Pipeline Manager: it builds every
// configured stage, wires their input/output channels by worklist
// resolution, and runs them under a suture supervisor tree until shutdown.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/logging"
	"github.com/liminal-stream/engine/internal/metrics"
	"github.com/liminal-stream/engine/internal/processor"
	"github.com/liminal-stream/engine/internal/registry"
	"github.com/liminal-stream/engine/internal/stage"
	"github.com/liminal-stream/engine/internal/supervisor"
	"github.com/liminal-stream/engine/internal/timing"
)

// ErrUnmetDependency is returned by ConnectStages when one or more stages
// could never be connected because their declared inputs never resolve to
// an output channel produced elsewhere in the config, including cases of
// circular dependency between stages.
type ErrUnmetDependency struct {
	Stages []string
}

func (e *ErrUnmetDependency) Error() string {
	return fmt.Sprintf("pipeline: unmet or circular dependencies in stages: %v", e.Stages)
}

// stageHandle pairs a built stage with the config it was built from, plus
// the supervisor token it was given once started.
type stageHandle struct {
	name            string
	cfg             config.StageConfig
	st              *stage.Stage
	pc              *processor.ProcessingContext
	token           suture.ServiceToken
	connectedInputs map[string]bool
}

// Manager builds, wires and runs every stage declared in a Config.
type Manager struct {
	cfg              config.Config
	registry         *registry.Registry
	stages           map[string]*stageHandle
	tree             *supervisor.StageTree
	logger           zerolog.Logger
	subscriberCounts map[string]int
}

// NewManager constructs a Manager for cfg. Call BuildAll, then
// ConnectStages, then StartAll, then WaitForAll.
func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cfg:              cfg,
		registry:         registry.New(),
		stages:           make(map[string]*stageHandle),
		logger:           logging.Component("pipeline"),
		subscriberCounts: make(map[string]int),
	}
}

// BuildAll constructs a Processor (via the process-wide factory) for every
// stage declared across inputs, pipelines and outputs, and prepares the
// supervisor the stages will run under. It does not wire any channels.
func (m *Manager) BuildAll() error {
	start := time.Now()
	defer func() { metrics.ObservePipelineBuild(time.Since(start)) }()

	for _, entry := range m.cfg.AllStages() {
		proc, err := processor.Create(entry.Name, entry.Config)
		if err != nil {
			return fmt.Errorf("pipeline: building stage %q: %w", entry.Name, err)
		}
		pc := processor.NewProcessingContext(entry.Name)
		m.stages[entry.Name] = &stageHandle{
			name:            entry.Name,
			cfg:             entry.Config,
			pc:              pc,
			st:              stage.New(entry.Name, proc, pc, entry.Config.TimingOrDefault().ToInternalConfig()),
			connectedInputs: make(map[string]bool),
		}
	}

	tree, err := supervisor.NewStageTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("pipeline: creating supervisor tree: %w", err)
	}
	m.tree = tree
	return nil
}

// ConnectStages wires every stage's declared inputs to subscribers on the
// named channel (creating the channel on first reference, via
// GetOrCreate) and attaches its declared output channel. Stages are
// resolved with a worklist: any stage whose inputs are not yet available is
// deferred and retried once more stages connect, until no further progress
// is made. Remaining unconnectable stages are reported via
// ErrUnmetDependency.
func (m *Manager) ConnectStages() error {
	pending := make([]string, 0, len(m.stages))
	for name := range m.stages {
		pending = append(pending, name)
	}

	for {
		progressed := false
		var stillPending []string

		for _, name := range pending {
			h := m.stages[name]
			if err := m.tryConnectStage(h); err != nil {
				stillPending = append(stillPending, name)
				continue
			}
			progressed = true
		}

		pending = stillPending
		if len(pending) == 0 {
			return nil
		}
		if !progressed {
			return &ErrUnmetDependency{Stages: pending}
		}
	}
}

func (m *Manager) tryConnectStage(h *stageHandle) error {
	for _, inputName := range h.cfg.Inputs {
		if h.connectedInputs[inputName] {
			// already wired on a prior (partially failed) retry pass; a
			// second Subscribe would double-count this stage's subscription
			// and, on a Direct channel, fail permanently with
			// ErrAlreadySubscribed even though the dependency is resolvable.
			continue
		}
		ch, ok := m.registry.Get(inputName)
		if !ok {
			return fmt.Errorf("pipeline: input channel %q not yet available", inputName)
		}
		sub, err := ch.Subscribe()
		if err != nil {
			return fmt.Errorf("pipeline: subscribing stage %q to %q: %w", h.name, inputName, err)
		}
		h.pc.AddInput(inputName, sub)
		h.connectedInputs[inputName] = true
		m.subscriberCounts[inputName]++
		metrics.SetChannelSubscribers(inputName, m.subscriberCounts[inputName])
	}

	if h.cfg.HasOutput() {
		chCfg := h.cfg.ChannelOrDefault()
		ch, err := m.registry.GetOrCreate(h.cfg.Output, chCfg.Type, chCfg.Capacity)
		if err != nil {
			return fmt.Errorf("pipeline: creating output channel %q for stage %q: %w", h.cfg.Output, h.name, err)
		}
		h.pc.AttachOutput(h.cfg.Output, ch)
	}

	return nil
}

// StartAll adds every stage to the supervisor tree layer matching its
// category (input, transform or output). The supervisor itself is not
// started until WaitForAll is called, so BuildAll/ConnectStages/StartAll can
// all run before any stage goroutine is live.
func (m *Manager) StartAll() error {
	for name, h := range m.stages {
		switch {
		case !h.cfg.HasInputs():
			h.token = m.tree.AddInputStage(h.st)
		case !h.cfg.HasOutput():
			h.token = m.tree.AddOutputStage(h.st)
		default:
			h.token = m.tree.AddTransformStage(h.st)
		}
		m.logger.Info().Str("stage", name).Msg("stage registered with supervisor")
	}
	metrics.SetStagesRunning(len(m.stages))
	return nil
}

// WaitForAll runs the supervisor tree until it is cancelled by SIGINT or
// SIGTERM, then waits for every stage to stop. It returns the supervisor's
// terminal error, if any.
func (m *Manager) WaitForAll(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m.logger.Info().Msg("pipeline running")
	err := m.tree.Serve(ctx)
	if err != nil && ctx.Err() != nil {
		// context cancellation via signal is the normal shutdown path
		return nil
	}
	return err
}
