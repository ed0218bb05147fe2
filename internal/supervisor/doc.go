// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

/*
Package supervisor provides process supervision for the pipeline engine
using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of every stage in a running pipeline. It provides Erlang/OTP-style
supervision with failure isolation and graceful shutdown; automatic restart
is intentionally disabled per stage (see internal/stage), since a failed
stage should terminate rather than be silently relaunched.

# Overview

The supervisor tree organizes stages into three layers matching the stage
categories the configuration schema recognises:

	RootSupervisor ("liminal-pipeline")
	├── InputSupervisor ("input-stages")
	│   └── every stage with no declared inputs (sources)
	├── TransformSupervisor ("transform-stages")
	│   └── every stage with both declared inputs and an output
	└── OutputSupervisor ("output-stages")
	    └── every stage with declared inputs and no output (sinks)

This hierarchy ensures that:
  - A crash in an output stage (e.g. a broker disconnect) is reported and
    isolated without directly tearing down the input layer
  - Each layer can be inspected independently via UnstoppedServiceReport
  - The root supervisor still observes every stage for top-level shutdown

internal/pipeline.Manager runs every pipeline under a StageTree, placing
each stage in the layer that matches its category.

# Usage Example

	logger := slog.Default()
	config := supervisor.DefaultTreeConfig()

	tree, err := supervisor.NewStageTree(logger, config)
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddInputStage(simulatedStage)
	tree.AddTransformStage(scaleStage)
	tree.AddOutputStage(consoleStage)

	ctx := context.Background()
	if err := tree.Serve(ctx); err != nil {
	    log.Printf("supervisor stopped: %v", err)
	}

# Configuration

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,
	    FailureDecay:     30.0,
	    FailureBackoff:   15 * time.Second,
	    ShutdownTimeout:  10 * time.Second,
	}

Default values match suture's production-ready defaults.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("stage didn't stop: %v", svc)
	}

# See Also

  - internal/stage: the suture.Service wrapper each stage runs as
  - internal/pipeline: builds, wires and runs the stages this tree supervises
  - github.com/thejerf/suture/v4: underlying supervision library
*/
package supervisor
