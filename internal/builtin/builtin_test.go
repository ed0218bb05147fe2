// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"context"
	"testing"

	"github.com/liminal-stream/engine/internal/channel"
	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/processor"
)

func TestAllBuiltinTypesRegistered(t *testing.T) {
	for _, name := range []string{"simulated", "scale", "lowpass", "fusion", "rename", "rule", "console", "log", "file", "mqtt_input", "mqtt_output", "tcp_input", "tcp_output"} {
		if !processor.Exists(name) {
			t.Errorf("expected built-in type %q to be registered", name)
		}
	}
}

func newTestContext(inputName string, in channel.Subscriber, outCh channel.Channel) *processor.ProcessingContext {
	pc := processor.NewProcessingContext("test")
	if in != nil {
		pc.AddInput(inputName, in)
	}
	if outCh != nil {
		pc.AttachOutput("out", outCh)
	}
	return pc
}

func TestScaleProcessorScalesSingleField(t *testing.T) {
	in := channel.New(channel.TypeDirect, 4)
	out := channel.New(channel.TypeDirect, 4)
	inSub, _ := in.Subscribe()
	outSub, _ := out.Subscribe()

	p, err := newScaleProcessor("scale1", config.StageConfig{
		Parameters: map[string]any{"scale_factor": 2.0, "field_in": "x", "field_out": "y"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := in.Publish(message.New("src", "raw", map[string]any{"x": 3.0})); err != nil {
		t.Fatalf("publish: %v", err)
	}

	pc := newTestContext("raw", inSub, out)
	if err := p.Process(context.Background(), pc); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, ok := outSub.TryRecv()
	if !ok {
		t.Fatal("expected a scaled message on output")
	}
	payload := got.Payload.(map[string]any)
	if payload["y"] != 6.0 {
		t.Fatalf("expected y=6.0, got %v", payload["y"])
	}
}

func TestRuleProcessorAppliesSetFieldWhenConditionMatches(t *testing.T) {
	in := channel.New(channel.TypeDirect, 4)
	out := channel.New(channel.TypeDirect, 4)
	inSub, _ := in.Subscribe()
	outSub, _ := out.Subscribe()

	params := map[string]any{
		"rules": []any{
			map[string]any{
				"condition": map[string]any{"field_path": "level", "operation": ">", "value": 50.0},
				"actions": []any{
					map[string]any{"type": "set_field", "field_path": "alert", "value": true},
				},
			},
		},
	}

	p, err := newRuleProcessor("rule1", config.StageConfig{Parameters: params})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := in.Publish(message.New("src", "raw", map[string]any{"level": 75.0})); err != nil {
		t.Fatalf("publish: %v", err)
	}

	pc := newTestContext("raw", inSub, out)
	if err := p.Process(context.Background(), pc); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, ok := outSub.TryRecv()
	if !ok {
		t.Fatal("expected a message on output")
	}
	payload := got.Payload.(map[string]any)
	if payload["alert"] != true {
		t.Fatalf("expected alert=true, got %v", payload["alert"])
	}
}
