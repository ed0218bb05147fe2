// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package config

import "fmt"

// ValidationError describes one structural problem found in a Config.
type ValidationError struct {
	Stage  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: stage %q: %s", e.Stage, e.Reason)
}

// Validate checks the structural contract every stage must satisfy:
// input stages take no inputs and must declare an output; pipeline stages
// must declare both; output stages must declare inputs and no output.
// Every input name a stage declares must resolve to another stage's
// declared output channel name somewhere in the config.
func Validate(cfg Config) error {
	outputs := make(map[string]struct{})
	for name, sc := range cfg.Inputs {
		if sc.HasInputs() {
			return &ValidationError{Stage: name, Reason: "input stages must not declare inputs"}
		}
		if !sc.HasOutput() {
			return &ValidationError{Stage: name, Reason: "input stages must declare an output"}
		}
		outputs[sc.Output] = struct{}{}
	}
	for _, pc := range cfg.Pipelines {
		for name, sc := range pc.Stages {
			if !sc.HasInputs() {
				return &ValidationError{Stage: name, Reason: "pipeline stages must declare at least one input"}
			}
			if !sc.HasOutput() {
				return &ValidationError{Stage: name, Reason: "pipeline stages must declare an output"}
			}
			outputs[sc.Output] = struct{}{}
		}
	}
	for name, sc := range cfg.Outputs {
		if !sc.HasInputs() {
			return &ValidationError{Stage: name, Reason: "output stages must declare at least one input"}
		}
		if sc.HasOutput() {
			return &ValidationError{Stage: name, Reason: "output stages must not declare an output"}
		}
	}

	for _, entry := range cfg.AllStages() {
		for _, in := range entry.Config.Inputs {
			if _, ok := outputs[in]; !ok {
				return &ValidationError{Stage: entry.Name, Reason: fmt.Sprintf("input %q does not match any declared output channel", in)}
			}
		}
	}
	return nil
}
