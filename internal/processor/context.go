// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package processor

import (
	"github.com/liminal-stream/engine/internal/channel"
	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/metrics"
)

// OutputInfo names the channel a stage publishes to.
type OutputInfo struct {
	Name    string
	Channel channel.Channel
}

// ProcessingContext is the per-stage runtime bag passed into every Process
// call. It is created once at wiring time and never shared across stages.
type ProcessingContext struct {
	StageName string
	Inputs    map[string]channel.Subscriber
	Output    *OutputInfo
	Metadata  map[string]string
}

// NewProcessingContext returns an empty context for the given stage name.
func NewProcessingContext(stageName string) *ProcessingContext {
	return &ProcessingContext{
		StageName: stageName,
		Inputs:    make(map[string]channel.Subscriber),
		Metadata:  make(map[string]string),
	}
}

// AddInput records a subscriber under the given channel name.
func (c *ProcessingContext) AddInput(name string, sub channel.Subscriber) {
	c.Inputs[name] = sub
}

// AttachOutput sets the single output channel for the stage.
func (c *ProcessingContext) AttachOutput(name string, ch channel.Channel) {
	c.Output = &OutputInfo{Name: name, Channel: ch}
}

// FirstInput returns one arbitrary input subscriber, convenient for
// single-input processors (transform stages with exactly one input).
func (c *ProcessingContext) FirstInput() (string, channel.Subscriber, bool) {
	for name, sub := range c.Inputs {
		return name, sub, true
	}
	return "", nil, false
}

// Publish sends msg on the stage's output channel. It is a no-op returning
// nil if the stage has no output attached.
func (c *ProcessingContext) Publish(msg message.Message) error {
	if c.Output == nil {
		return nil
	}
	if err := c.Output.Channel.Publish(msg); err != nil {
		return err
	}
	metrics.RecordPublished(c.StageName)
	return nil
}
