// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package processor

// FieldConfig captures the five ways a processor's field configuration can
// be declared in a stage's parameters, grounded on the reference
// implementation's FieldConfig enum. Go has no sum types, so the variant is
// carried in Kind and only the fields relevant to that variant are set.
type FieldConfig struct {
	Kind FieldConfigKind

	// Single
	Input  string
	Output string

	// Multiple
	Inputs  []string
	Outputs []string

	// Mapping: input field name -> output field name
	Mapping map[string]string

	// OutputOnly
	OutputOnlyField string
}

// FieldConfigKind identifies which FieldConfig variant is populated.
type FieldConfigKind int

const (
	FieldConfigNone FieldConfigKind = iota
	FieldConfigSingle
	FieldConfigMultiple
	FieldConfigMapping
	FieldConfigOutputOnly
)

// InputFields returns every field name this configuration reads from.
func (f FieldConfig) InputFields() []string {
	switch f.Kind {
	case FieldConfigSingle:
		return []string{f.Input}
	case FieldConfigMultiple:
		return append([]string(nil), f.Inputs...)
	case FieldConfigMapping:
		names := make([]string, 0, len(f.Mapping))
		for in := range f.Mapping {
			names = append(names, in)
		}
		return names
	default:
		return nil
	}
}

// OutputFields returns every field name this configuration writes to.
func (f FieldConfig) OutputFields() []string {
	switch f.Kind {
	case FieldConfigSingle:
		return []string{f.Output}
	case FieldConfigMultiple:
		return append([]string(nil), f.Outputs...)
	case FieldConfigMapping:
		names := make([]string, 0, len(f.Mapping))
		for _, out := range f.Mapping {
			names = append(names, out)
		}
		return names
	case FieldConfigOutputOnly:
		return []string{f.OutputOnlyField}
	default:
		return nil
	}
}

// GetOutputForInput returns the output field name paired with the given
// input field, if this configuration defines one.
func (f FieldConfig) GetOutputForInput(input string) (string, bool) {
	switch f.Kind {
	case FieldConfigSingle:
		if f.Input == input {
			return f.Output, true
		}
	case FieldConfigMultiple:
		for i, in := range f.Inputs {
			if in == input && i < len(f.Outputs) {
				return f.Outputs[i], true
			}
		}
	case FieldConfigMapping:
		if out, ok := f.Mapping[input]; ok {
			return out, true
		}
	}
	return "", false
}
