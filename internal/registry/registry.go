// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package registry implements the Channel Registry: a name-keyed map of
// lazily-created channels, owned solely by the Pipeline Manager.
package registry

import (
	"fmt"
	"sync"

	"github.com/liminal-stream/engine/internal/channel"
)

// ErrChannelTypeMismatch is returned by GetOrCreate when a channel already
// exists under the requested name with a different type. This is a
// deliberate behaviour change from the first-writer-wins-silently
// reference implementation, per the specification's recommendation that a
// mismatch should be rejected rather than silently ignored.
var ErrChannelTypeMismatch = fmt.Errorf("registry: channel type mismatch")

type entry struct {
	ch       channel.Channel
	kind     channel.Type
	capacity int
}

// Registry maps channel names to channel instances.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Get returns the channel registered under name, if any.
func (r *Registry) Get(name string) (channel.Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.ch, true
}

// GetOrCreate returns the existing channel registered under name, or
// creates one of the given type and capacity if none exists yet
// (first-writer-wins). If a channel already exists under name with a
// different type, ErrChannelTypeMismatch is returned.
func (r *Registry) GetOrCreate(name string, kind channel.Type, capacity int) (channel.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		if e.kind != kind {
			return nil, fmt.Errorf("%w: channel %q registered as %s, requested %s", ErrChannelTypeMismatch, name, e.kind, kind)
		}
		return e.ch, nil
	}

	ch := channel.New(kind, capacity)
	r.entries[name] = entry{ch: ch, kind: kind, capacity: capacity}
	return ch, nil
}

// Names returns every registered channel name, in no particular order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// CloseAll closes every registered channel. Called when the Pipeline
// Manager tears down at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.ch.Close()
	}
}
