// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns production-ready defaults.
// These values match suture's built-in defaults per pkg.go.dev documentation.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// StageTree manages the hierarchical supervisor structure for a pipeline run.
//
// The tree is organized into three layers matching the three stage
// categories the configuration schema recognises:
//   - input: stages with no declared inputs (sources)
//   - transform: stages with both declared inputs and an output
//   - output: stages with declared inputs and no output (sinks)
//
// This structure provides failure isolation: a crash in one category's
// child supervisor does not directly affect another category's ability to
// keep running, while the root supervisor still observes every stage for
// top-level shutdown reporting. internal/pipeline.Manager always runs its
// stages under a StageTree.
type StageTree struct {
	root      *suture.Supervisor
	input     *suture.Supervisor
	transform *suture.Supervisor
	output    *suture.Supervisor
	logger    *slog.Logger
	config    TreeConfig
}

// NewStageTree creates a new supervisor tree with the given configuration.
func NewStageTree(logger *slog.Logger, config TreeConfig) (*StageTree, error) {
	// Apply defaults for zero values
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	// IMPORTANT: the correct API is (&Handler{Logger: logger}).MustHook(),
	// not sutureslog.EventHook(logger), which does not exist. MustHook has a
	// pointer receiver, so we need to take the address.
	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Child supervisors use the same failure parameters and inherit the
	// root's EventHook once added to it.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("liminal-pipeline", rootSpec)
	input := suture.New("input-stages", childSpec)
	transform := suture.New("transform-stages", childSpec)
	output := suture.New("output-stages", childSpec)

	root.Add(input)
	root.Add(transform)
	root.Add(output)

	return &StageTree{
		root:      root,
		input:     input,
		transform: transform,
		output:    output,
		logger:    logger,
		config:    config,
	}, nil
}

// Root returns the root supervisor for direct access if needed.
func (t *StageTree) Root() *suture.Supervisor {
	return t.root
}

// AddInputStage adds a source stage to the input-layer supervisor.
func (t *StageTree) AddInputStage(svc suture.Service) suture.ServiceToken {
	return t.input.Add(svc)
}

// AddTransformStage adds a pipeline stage to the transform-layer supervisor.
func (t *StageTree) AddTransformStage(svc suture.Service) suture.ServiceToken {
	return t.transform.Add(svc)
}

// AddOutputStage adds a sink stage to the output-layer supervisor.
func (t *StageTree) AddOutputStage(svc suture.Service) suture.ServiceToken {
	return t.output.Add(svc)
}

// RemoveTransformStage removes a stage previously added with
// AddTransformStage, e.g. when a config reload drops it.
func (t *StageTree) RemoveTransformStage(token suture.ServiceToken) error {
	return t.transform.Remove(token)
}

// Serve starts the supervisor tree and blocks until the context is canceled.
func (t *StageTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the supervisor tree in a background goroutine.
// Returns a channel that receives the error (or nil) when the supervisor stops.
func (t *StageTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport returns information about stages that failed to
// stop within the configured shutdown timeout.
func (t *StageTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// Remove removes a stage from the tree by its token.
func (t *StageTree) Remove(token suture.ServiceToken) error {
	return t.root.Remove(token)
}

// RemoveAndWait removes a stage and waits for it to fully stop.
func (t *StageTree) RemoveAndWait(token suture.ServiceToken, timeout time.Duration) error {
	return t.root.RemoveAndWait(token, timeout)
}
