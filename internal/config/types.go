// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package config defines the TOML-deserialised configuration schema for
// the engine: input/output/pipeline stage declarations, channel and timing
// configuration, and the structural validator that runs before the
// Pipeline Manager builds anything.
package config

import (
	"time"

	"github.com/liminal-stream/engine/internal/channel"
	"github.com/liminal-stream/engine/internal/timing"
)

// ConcurrencyType selects a stage's execution model. Every variant
// currently executes single-threaded; Pipeline and Owner are reserved for
// future concurrency implementations and are accepted but ignored, exactly
// as the reference implementation documents.
type ConcurrencyType string

const (
	ConcurrencyThread   ConcurrencyType = "thread"
	ConcurrencyPipeline ConcurrencyType = "pipeline"
	ConcurrencyOwner    ConcurrencyType = "owner"
)

// ConcurrencyConfig configures a stage's concurrency behaviour.
type ConcurrencyConfig struct {
	Type ConcurrencyType `koanf:"type"`
}

// WatermarkStrategyConfig is the TOML shape of a watermark strategy; see
// ToInternal for the conversion into internal/timing's runtime type.
type WatermarkStrategyConfig struct {
	Type       string  `koanf:"type"`
	IntervalMS uint64  `koanf:"interval_ms"`
	Field      string  `koanf:"field"`
	Percentile float64 `koanf:"percentile"`
}

// ToInternal converts the TOML watermark strategy into the runtime type
// internal/timing operates on.
func (w *WatermarkStrategyConfig) ToInternal() timing.WatermarkStrategy {
	if w == nil {
		return timing.WatermarkStrategy{Kind: timing.StrategyNone}
	}
	switch w.Type {
	case "periodic":
		return timing.WatermarkStrategy{Kind: timing.StrategyPeriodic, Interval: time.Duration(w.IntervalMS) * time.Millisecond}
	case "punctuated":
		return timing.WatermarkStrategy{Kind: timing.StrategyPunctuated, Field: w.Field}
	case "heuristic":
		return timing.WatermarkStrategy{Kind: timing.StrategyHeuristic, Percentile: w.Percentile}
	default:
		return timing.WatermarkStrategy{Kind: timing.StrategyNone}
	}
}

// defaultMaxLatenessMS matches the reference implementation's default.
const defaultMaxLatenessMS = 30_000

// TimingConfig is the TOML shape of a stage's timing configuration.
type TimingConfig struct {
	EventTimeField      string                   `koanf:"event_time_field"`
	WatermarkStrategy   *WatermarkStrategyConfig `koanf:"watermark_strategy"`
	MaxLatenessMS       uint64                   `koanf:"max_lateness_ms"`
	ProcessingTimeoutMS uint64                   `koanf:"processing_timeout_ms"`
	JitterBoundsMS      uint64                   `koanf:"jitter_bounds_ms"`
	MetricsEnabled      bool                     `koanf:"metrics_enabled"`
}

// DefaultTimingConfig returns the reference implementation's defaults.
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{MaxLatenessMS: defaultMaxLatenessMS, MetricsEnabled: true}
}

// ToInternalConfig converts the TOML timing config into internal/timing's
// runtime Config, including the engine's mandatory watermark-monotonicity
// clamp (applied inside timing.WatermarkManager, not here).
func (t *TimingConfig) ToInternalConfig() timing.Config {
	cfg := timing.Config{
		WatermarkStrategy: t.WatermarkStrategy.ToInternal(),
		MaxLateness:       time.Duration(t.MaxLatenessMS) * time.Millisecond,
		MetricsEnabled:    t.MetricsEnabled,
	}
	if t.JitterBoundsMS > 0 {
		d := time.Duration(t.JitterBoundsMS) * time.Millisecond
		cfg.JitterBounds = &d
	}
	return cfg
}

// ChannelConfig is the TOML shape of a stage's output channel.
type ChannelConfig struct {
	Type     channel.Type `koanf:"type"`
	Capacity int          `koanf:"capacity"`
}

// DefaultChannelConfig matches the reference implementation's defaults:
// Broadcast, capacity 128.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{Type: channel.DefaultType, Capacity: channel.DefaultCapacity}
}

// StageConfig configures one processing stage: input, transform or output.
type StageConfig struct {
	Type        string                 `koanf:"type"`
	Inputs      []string               `koanf:"inputs"`
	Output      string                 `koanf:"output"`
	Concurrency *ConcurrencyConfig     `koanf:"concurrency"`
	Channel     *ChannelConfig         `koanf:"channel"`
	Timing      *TimingConfig          `koanf:"timing"`
	Parameters  map[string]any         `koanf:"parameters"`
}

// HasInputs reports whether the stage declares at least one input.
func (s StageConfig) HasInputs() bool { return len(s.Inputs) > 0 }

// HasOutput reports whether the stage declares an output channel name.
func (s StageConfig) HasOutput() bool { return s.Output != "" }

// ChannelOrDefault returns the stage's channel config, or the default if
// none was declared.
func (s StageConfig) ChannelOrDefault() ChannelConfig {
	if s.Channel != nil {
		return *s.Channel
	}
	return DefaultChannelConfig()
}

// TimingOrDefault returns the stage's timing config, or the default if
// none was declared.
func (s StageConfig) TimingOrDefault() TimingConfig {
	if s.Timing != nil {
		return *s.Timing
	}
	return DefaultTimingConfig()
}

// PipelineConfig groups named stages under a shared description.
type PipelineConfig struct {
	Description string                 `koanf:"description"`
	Stages      map[string]StageConfig `koanf:"stages"`
}

// Config is the root configuration tree loaded from TOML.
type Config struct {
	Inputs    map[string]StageConfig    `koanf:"inputs"`
	Pipelines map[string]PipelineConfig `koanf:"pipelines"`
	Outputs   map[string]StageConfig    `koanf:"outputs"`
}

// AllStages flattens inputs, every pipeline's stages, and outputs into one
// name-to-config slice, in no particular order — callers that need a
// deterministic order should sort the result themselves.
func (c Config) AllStages() []StageEntry {
	all := make([]StageEntry, 0, len(c.Inputs)+len(c.Outputs))
	for name, sc := range c.Inputs {
		all = append(all, StageEntry{Name: name, Config: sc})
	}
	for _, pc := range c.Pipelines {
		for name, sc := range pc.Stages {
			all = append(all, StageEntry{Name: name, Config: sc})
		}
	}
	for name, sc := range c.Outputs {
		all = append(all, StageEntry{Name: name, Config: sc})
	}
	return all
}

// StageEntry pairs a stage's declared name with its configuration.
type StageEntry struct {
	Name   string
	Config StageConfig
}
