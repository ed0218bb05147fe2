// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package builtin registers every processor type shipped with the engine
// against the process-wide factory in internal/processor. Importing this
// package for its side effects (a blank import from cmd/engine) is enough
// to make every built-in stage type available to configuration.
package builtin
