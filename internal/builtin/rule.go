// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/fieldpath"
	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/processor"
	"github.com/liminal-stream/engine/internal/validation"
)

func init() {
	processor.Register("rule", newRuleProcessor)
}

// ErrorStrategy controls how a failed action is handled.
type ErrorStrategy string

const (
	ErrorStrategyContinue   ErrorStrategy = "continue"
	ErrorStrategySkip       ErrorStrategy = "skip"
	ErrorStrategyAbort      ErrorStrategy = "abort"
	ErrorStrategyUseDefault ErrorStrategy = "use_default"
)

// Condition tests one field of a message's payload.
type Condition struct {
	FieldPath string `json:"field_path" validate:"required"`
	Operation string `json:"operation" validate:"required"`
	Value     any    `json:"value"`
}

// Action mutates a message's payload. Exactly one of its fields should be
// set, selected by Type; ComputeField (expression evaluation) is not
// supported (see DESIGN.md — no ecosystem expression-evaluator library
// appears anywhere in the retrieval corpus this engine was built from).
type Action struct {
	Type         string   `json:"type"`
	FieldPath    string   `json:"field_path"`
	Value        any      `json:"value"`
	SourceField  string   `json:"source_field"`
	TargetField  string   `json:"target_field"`
	OldField     string   `json:"old_field"`
	NewField     string   `json:"new_field"`
	FieldPaths   []string `json:"field_paths"`
}

// Rule pairs a condition with the actions to run when it matches, and the
// actions to run (if any) when it does not.
type Rule struct {
	Condition   Condition `json:"condition" validate:"required"`
	Actions     []Action  `json:"actions" validate:"required,min=1"`
	ElseActions []Action  `json:"else_actions"`
}

// ruleProcessor evaluates a condition per message and applies the matching
// branch's actions to the payload, grounded on the reference
// implementation's RuleProcessor.
type ruleProcessor struct {
	name          string
	rules         []Rule
	errorStrategy ErrorStrategy
}

func newRuleProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	rules := processor.ExtractParam[[]Rule](cfg.Parameters, "rules", nil)
	if len(rules) == 0 {
		return nil, fmt.Errorf("rule %q: requires at least one rule", name)
	}
	for i, r := range rules {
		if err := validation.ValidateStruct(&r); err != nil {
			return nil, fmt.Errorf("rule %q: rule %d: %w", name, i, err)
		}
	}
	return &ruleProcessor{
		name:          name,
		rules:         rules,
		errorStrategy: processor.ExtractParam(cfg.Parameters, "error_strategy", ErrorStrategyContinue),
	}, nil
}

func (p *ruleProcessor) Init(ctx context.Context) error { return nil }

func (p *ruleProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	_, sub, ok := pc.FirstInput()
	if !ok {
		return nil
	}
	in, ok := sub.Recv()
	if !ok {
		return nil
	}

	payload, _ := in.Payload.(map[string]any)
	if payload == nil {
		payload = map[string]any{}
	}
	working := any(cloneMap(payload))

	dropped := false
	for _, rule := range p.rules {
		matched := evaluateCondition(working, rule.Condition)
		actions := rule.ElseActions
		if matched {
			actions = rule.Actions
		}
		for _, action := range actions {
			if action.Type == "drop_message" {
				dropped = true
				continue
			}
			if err := p.applyAction(&working, action); err != nil {
				return fmt.Errorf("rule %q: %w", p.name, err)
			}
		}
	}
	if dropped {
		return nil
	}

	out := message.Propagate(in, p.name, outputTopic(pc, p.name), working)
	return pc.Publish(out)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func evaluateCondition(payload any, c Condition) bool {
	fieldValue, ok := fieldpath.ExtractFieldValue(payload, c.FieldPath)
	if !ok {
		return false
	}
	return evaluateOperation(fieldValue, c.Operation, c.Value)
}

func evaluateOperation(fieldValue any, op string, expected any) bool {
	switch op {
	case "equals", "==":
		return fieldValue == expected
	case "not_equals", "!=":
		return fieldValue != expected
	case "startswith":
		a, aok := fieldValue.(string)
		b, bok := expected.(string)
		return aok && bok && strings.HasPrefix(a, b)
	case "endswith":
		a, aok := fieldValue.(string)
		b, bok := expected.(string)
		return aok && bok && strings.HasSuffix(a, b)
	case "contains":
		a, aok := fieldValue.(string)
		b, bok := expected.(string)
		return aok && bok && strings.Contains(a, b)
	case ">", ">=", "<", "<=":
		a, aok := numeric(fieldValue)
		b, bok := numeric(expected)
		if !aok || !bok {
			return false
		}
		switch op {
		case ">":
			return a > b
		case ">=":
			return a >= b
		case "<":
			return a < b
		default:
			return a <= b
		}
	default:
		return false
	}
}

func (p *ruleProcessor) applyAction(payload *any, action Action) error {
	var err error
	switch action.Type {
	case "set_field":
		*payload, err = fieldpath.SetFieldValue(*payload, action.FieldPath, action.Value)
	case "remove_field":
		fieldpath.RemoveFieldValue(*payload, action.FieldPath)
	case "copy_field":
		v, ok := fieldpath.ExtractFieldValue(*payload, action.SourceField)
		if !ok {
			return p.handleActionError(fmt.Errorf("source field %q not found for copy", action.SourceField))
		}
		*payload, err = fieldpath.SetFieldValue(*payload, action.TargetField, v)
	case "rename_field":
		v, ok := fieldpath.ExtractFieldValue(*payload, action.OldField)
		if !ok {
			return p.handleActionError(fmt.Errorf("field %q not found for rename", action.OldField))
		}
		*payload, err = fieldpath.SetFieldValue(*payload, action.NewField, v)
		if err == nil {
			fieldpath.RemoveFieldValue(*payload, action.OldField)
		}
	case "keep_only_fields":
		kept := map[string]any{}
		for _, fp := range action.FieldPaths {
			if v, ok := fieldpath.ExtractFieldValue(*payload, fp); ok {
				kept[fp] = v
			}
		}
		*payload = kept
	case "pass_through", "drop_message":
		// no-op here; drop_message is handled by the caller
	case "compute_field":
		return p.handleActionError(fmt.Errorf("compute_field is not supported"))
	default:
		return p.handleActionError(fmt.Errorf("unknown action type %q", action.Type))
	}
	if err != nil {
		return p.handleActionError(err)
	}
	return nil
}

func (p *ruleProcessor) handleActionError(err error) error {
	switch p.errorStrategy {
	case ErrorStrategyAbort:
		return err
	default: // Continue, Skip, UseDefault all swallow the error and proceed
		return nil
	}
}
