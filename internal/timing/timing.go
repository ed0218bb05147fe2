// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package timing implements watermark generation, the drop predicate, and
// the timing helpers threaded through every message in the engine.
package timing

import (
	"sort"
	"time"

	"github.com/liminal-stream/engine/internal/fieldpath"
	"github.com/liminal-stream/engine/internal/message"
)

// heuristicWindowSize bounds the sliding window kept for Heuristic
// watermarks, matching the reference implementation's N=1000.
const heuristicWindowSize = 1000

// heuristicMinSamples is the minimum number of samples before a Heuristic
// watermark is emitted.
const heuristicMinSamples = 10

// StrategyKind identifies a watermark generation strategy.
type StrategyKind string

const (
	StrategyNone       StrategyKind = "none"
	StrategyPeriodic   StrategyKind = "periodic"
	StrategyPunctuated StrategyKind = "punctuated"
	StrategyHeuristic  StrategyKind = "heuristic"
)

// WatermarkStrategy configures how a stage derives watermarks.
type WatermarkStrategy struct {
	Kind       StrategyKind
	Interval   time.Duration // Periodic
	Field      string        // Punctuated
	Percentile float64       // Heuristic
}

// Config is the fully-resolved timing configuration for a stage.
type Config struct {
	WatermarkStrategy WatermarkStrategy
	MaxLateness       time.Duration
	JitterBounds      *time.Duration
	MetricsEnabled    bool
}

// DefaultConfig matches the reference implementation's defaults: no
// watermark strategy, 30s max lateness, no jitter bounds, metrics enabled.
func DefaultConfig() Config {
	return Config{
		WatermarkStrategy: WatermarkStrategy{Kind: StrategyNone},
		MaxLateness:       30 * time.Second,
		MetricsEnabled:    true,
	}
}

// WatermarkManager tracks the evolving watermark for one stage.
type WatermarkManager struct {
	config            Config
	lastWatermark     *time.Time
	lastPeriodicEmit  time.Time
	eventTimestamps   []time.Time
}

// NewWatermarkManager constructs a manager for the given config.
func NewWatermarkManager(cfg Config) *WatermarkManager {
	return &WatermarkManager{config: cfg, lastPeriodicEmit: time.Now()}
}

// Update feeds one message into the watermark strategy and returns the new
// watermark, if the strategy produced one on this call. Every candidate is
// clamped to max(last, candidate) so the watermark is never allowed to
// regress within a run — a deliberate requirement of this engine, not
// enforced by the original Rust implementation it was distilled from.
func (w *WatermarkManager) Update(m message.Message) (time.Time, bool) {
	var candidate time.Time
	var produced bool

	switch w.config.WatermarkStrategy.Kind {
	case StrategyPeriodic:
		now := time.Now()
		if now.Sub(w.lastPeriodicEmit) >= w.config.WatermarkStrategy.Interval {
			w.lastPeriodicEmit = now
			candidate = now.Add(-w.config.MaxLateness)
			produced = true
		}

	case StrategyPunctuated:
		if v, ok := ExtractTimestampField(m.Payload, w.config.WatermarkStrategy.Field); ok {
			candidate = v.Add(-w.config.MaxLateness)
			produced = true
		}

	case StrategyHeuristic:
		w.eventTimestamps = append(w.eventTimestamps, m.Timing.EventTime)
		if len(w.eventTimestamps) > heuristicWindowSize {
			w.eventTimestamps = w.eventTimestamps[1:]
		}
		if len(w.eventTimestamps) >= heuristicMinSamples {
			sorted := make([]time.Time, len(w.eventTimestamps))
			copy(sorted, w.eventTimestamps)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
			idx := int(float64(len(sorted)) * w.config.WatermarkStrategy.Percentile / 100.0)
			if idx < 0 {
				idx = 0
			}
			if idx >= len(sorted) {
				idx = len(sorted) - 1
			}
			candidate = sorted[idx].Add(-w.config.MaxLateness)
			produced = true
		}

	case StrategyNone:
		return time.Time{}, false
	}

	if !produced {
		return time.Time{}, false
	}

	if w.lastWatermark != nil && candidate.Before(*w.lastWatermark) {
		candidate = *w.lastWatermark
	}
	w.lastWatermark = &candidate
	return candidate, true
}

// Current returns the most recently emitted watermark, if any.
func (w *WatermarkManager) Current() (time.Time, bool) {
	if w.lastWatermark == nil {
		return time.Time{}, false
	}
	return *w.lastWatermark, true
}

// ExtractEventTime walks payload by dotted field path and returns a time,
// falling back to now() if the field is absent or unparseable.
func ExtractEventTime(payload any, fieldPath string) time.Time {
	if v, ok := ExtractTimestampField(payload, fieldPath); ok {
		return v
	}
	return time.Now()
}

// ExtractTimestampField extracts a timestamp from payload at fieldPath.
// Numeric fields are interpreted as milliseconds-since-epoch (integers) or
// seconds-with-fraction (floats); string fields are parsed as ISO-8601.
func ExtractTimestampField(payload any, fieldPath string) (time.Time, bool) {
	v, ok := fieldpath.ExtractFieldValue(payload, fieldPath)
	if !ok {
		return time.Time{}, false
	}
	switch n := v.(type) {
	case float64:
		secs := int64(n)
		frac := n - float64(secs)
		if frac == 0 {
			// integral values (JSON integers decode as float64) are
			// milliseconds since epoch
			return time.UnixMilli(secs), true
		}
		return time.Unix(secs, int64(frac*1e9)), true
	case int64:
		return time.UnixMilli(n), true
	case string:
		return ParseTimestamp(n)
	default:
		return time.Time{}, false
	}
}

// ParseTimestamp parses an ISO-8601 / RFC3339 timestamp string. No
// ecosystem ISO-8601 parser appears anywhere in the retrieval corpus this
// engine was built from, so this single helper is intentionally
// stdlib-only (see DESIGN.md).
func ParseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ShouldDrop implements the drop predicate in the order the specification
// requires: deadline-exceeded, then late, then jitter-bounds-exceeded.
func ShouldDrop(m message.Message, cfg Config) bool {
	if m.Timing.IsDeadlineExceeded() {
		return true
	}
	if m.Timing.IsLate() {
		return true
	}
	if cfg.JitterBounds != nil && m.Timing.ProcessingLatency() > *cfg.JitterBounds {
		return true
	}
	return false
}

// AddProcessingDeadline returns a copy of m with a deadline set
// processingTimeout in the future.
func AddProcessingDeadline(m message.Message, processingTimeout time.Duration) message.Message {
	return m.WithDeadline(time.Now().Add(processingTimeout))
}

// SequenceGenerator produces a per-stage monotonically increasing sequence
// id, combined with a stage's name to give a total order per producer.
type SequenceGenerator struct {
	next uint64
}

// Next returns the next sequence id, starting at zero.
func (g *SequenceGenerator) Next() uint64 {
	id := g.next
	g.next++
	return id
}
