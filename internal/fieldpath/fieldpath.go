// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package fieldpath provides dot-separated path access into the
// map[string]any-shaped JSON payload trees carried by every Message. No
// ecosystem dotted-path JSON library appears anywhere in the retrieval
// corpus this engine was built from, so this package is intentionally
// stdlib-only (see DESIGN.md).
package fieldpath

import (
	"fmt"
	"strings"
)

// ExtractFieldValue walks payload along the dot-separated fieldPath (e.g.
// "device.id" or "accelerometer.x") and returns the value found there.
func ExtractFieldValue(payload any, fieldPath string) (any, bool) {
	current := payload
	for _, part := range strings.Split(fieldPath, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

// SetFieldValue sets a value at the dot-separated fieldPath inside payload,
// creating intermediate objects as needed. A map[string]any payload is
// modified in place; any other payload is replaced by a new map holding
// only the set value. The returned value should replace the caller's
// reference.
func SetFieldValue(payload any, fieldPath string, value any) (any, error) {
	parts := strings.Split(fieldPath, ".")
	if len(parts) == 0 || parts[0] == "" {
		return payload, fmt.Errorf("fieldpath: empty field path")
	}

	root, ok := payload.(map[string]any)
	if !ok {
		root = map[string]any{}
	}

	current := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return root, nil
}

// RemoveFieldValue deletes the value at the dot-separated fieldPath inside
// payload, if present. It is a no-op if any intermediate segment is
// missing.
func RemoveFieldValue(payload any, fieldPath string) {
	parts := strings.Split(fieldPath, ".")
	if len(parts) == 0 {
		return
	}
	m, ok := payload.(map[string]any)
	if !ok {
		return
	}
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
}

// FieldExists reports whether fieldPath resolves to a value inside payload.
func FieldExists(payload any, fieldPath string) bool {
	_, ok := ExtractFieldValue(payload, fieldPath)
	return ok
}
