// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with user-friendly error messages, used by builtin
// processors to validate parameter structs they decode from a stage's
// configuration (e.g. rule engine Conditions and Actions).
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Comprehensive error translation to human-readable messages
//   - APIError conversion for callers that want a structured error shape
//   - Built-in validator support (required, min/max, oneof, etc.)
//
// # Quick Start
//
//	type Condition struct {
//	    FieldPath string `validate:"required"`
//	    Operation string `validate:"required,oneof=equals not_equals > >= < <="`
//	}
//
//	if verr := validation.ValidateStruct(&cond); verr != nil {
//	    return nil, fmt.Errorf("invalid condition: %w", verr)
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: Field must not be empty
//   - min=n / max=n: Minimum/maximum length n characters
//
// Numeric validations:
//   - gte=n / lte=n / gt=n / lt=n
//   - min=n / max=n: Minimum/maximum value n
//
// Collection validations:
//   - min=n on a slice: Minimum number of elements
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values
//
// # Error Types
//
// ValidationError represents a single field validation failure:
//
//	type ValidationError struct {
//	    Field()   string      // Struct field name
//	    Tag()     string      // Validation tag that failed
//	    Param()   string      // Tag parameter (e.g., "100" for max=100)
//	    Value()   interface{} // Actual value that failed
//	    Error()   string      // Human-readable message
//	}
//
// RequestValidationError aggregates multiple field errors:
//
//	type RequestValidationError struct {
//	    Errors() []ValidationError
//	    Error()  string           // Combined message
//	    ToAPIError() *APIError    // Convert to a structured error
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use:
//
//	validate := validation.GetValidator()  // Thread-safe
//	err := validation.ValidateStruct(&req) // Thread-safe
//
// # See Also
//
//   - internal/builtin: processors that validate their decoded parameters
//   - github.com/go-playground/validator/v10: Underlying library
package validation
