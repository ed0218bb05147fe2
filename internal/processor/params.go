// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package processor

import "github.com/goccy/go-json"

// ExtractParam reads key from params and decodes it as T, silently falling
// back to def if the key is absent or cannot be decoded as T — matching the
// reference implementation's extract_param, which never fails a stage's
// construction over a malformed optional parameter.
func ExtractParam[T any](params map[string]any, key string, def T) T {
	raw, ok := params[key]
	if !ok {
		return def
	}
	// Round-trip through JSON to coerce the dynamically-typed parameter
	// value into T, the same approach serde_json::from_value takes.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return def
	}
	var out T
	if err := json.Unmarshal(encoded, &out); err != nil {
		return def
	}
	return out
}

// ExtractFieldParams derives a FieldConfig from a stage's parameters,
// trying each variant in the reference implementation's priority order:
// Single (field_in + field_out), OutputOnly (field_out alone), Multiple
// (fields_in[] + fields_out[], matched length), Mapping (field_mapping),
// falling back to None if nothing matches.
func ExtractFieldParams(params map[string]any) FieldConfig {
	fieldIn, hasIn := stringParam(params, "field_in")
	fieldOut, hasOut := stringParam(params, "field_out")
	if hasIn && hasOut {
		return FieldConfig{Kind: FieldConfigSingle, Input: fieldIn, Output: fieldOut}
	}
	if hasOut {
		return FieldConfig{Kind: FieldConfigOutputOnly, OutputOnlyField: fieldOut}
	}

	fieldsIn, hasInList := stringSliceParam(params, "fields_in")
	fieldsOut, hasOutList := stringSliceParam(params, "fields_out")
	if hasInList && hasOutList && len(fieldsIn) == len(fieldsOut) {
		return FieldConfig{Kind: FieldConfigMultiple, Inputs: fieldsIn, Outputs: fieldsOut}
	}

	if mapping, ok := stringMapParam(params, "field_mapping"); ok {
		return FieldConfig{Kind: FieldConfigMapping, Mapping: mapping}
	}

	return FieldConfig{Kind: FieldConfigNone}
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stringSliceParam(params map[string]any, key string) ([]string, bool) {
	v, ok := params[key]
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func stringMapParam(params map[string]any, key string) (map[string]string, bool) {
	v, ok := params[key]
	if !ok {
		return nil, false
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}
