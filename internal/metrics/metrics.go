// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the pipeline engine: per-stage throughput and
// errors, channel backpressure, watermark lag, and pipeline build timing.

var (
	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liminal_messages_published_total",
			Help: "Total number of messages a stage published downstream",
		},
		[]string{"stage"},
	)

	MessagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liminal_messages_dropped_total",
			Help: "Total number of messages dropped before reaching a downstream stage",
		},
		[]string{"stage", "reason"}, // reason: "rule_filter", "channel_full", "late_arrival"
	)

	StageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liminal_stage_errors_total",
			Help: "Total number of stage Init/Process errors",
		},
		[]string{"stage", "phase"}, // phase: "init", "process"
	)

	StageProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "liminal_stage_process_duration_seconds",
			Help:    "Duration of a single stage Process call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	ChannelQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "liminal_channel_queue_depth",
			Help: "Current number of buffered messages in a channel",
		},
		[]string{"channel"},
	)

	ChannelSubscribersTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "liminal_channel_subscribers",
			Help: "Current number of subscribers on a channel",
		},
		[]string{"channel"},
	)

	WatermarkLagSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "liminal_watermark_lag_seconds",
			Help: "Difference between wall-clock time and the current watermark for a stage",
		},
		[]string{"stage"},
	)

	PipelineBuildDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "liminal_pipeline_build_duration_seconds",
			Help:    "Duration of building every pipeline stage at startup",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	StagesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liminal_stages_running",
			Help: "Current number of stages registered with the supervisor",
		},
	)
)

// RecordPublished records a stage publishing a message downstream.
func RecordPublished(stage string) {
	MessagesPublishedTotal.WithLabelValues(stage).Inc()
}

// RecordDropped records a message dropped before reaching a downstream stage.
func RecordDropped(stage, reason string) {
	MessagesDroppedTotal.WithLabelValues(stage, reason).Inc()
}

// RecordStageError records an Init or Process failure for a stage.
func RecordStageError(stage, phase string) {
	StageErrorsTotal.WithLabelValues(stage, phase).Inc()
}

// ObserveStageProcess records the duration of a single Process call.
func ObserveStageProcess(stage string, d time.Duration) {
	StageProcessDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetChannelQueueDepth updates the current buffered depth of a channel.
func SetChannelQueueDepth(channel string, depth int) {
	ChannelQueueDepth.WithLabelValues(channel).Set(float64(depth))
}

// SetChannelSubscribers updates the current subscriber count of a channel.
func SetChannelSubscribers(channel string, count int) {
	ChannelSubscribersTotal.WithLabelValues(channel).Set(float64(count))
}

// SetWatermarkLag updates the watermark lag gauge for a stage.
func SetWatermarkLag(stage string, lag time.Duration) {
	WatermarkLagSeconds.WithLabelValues(stage).Set(lag.Seconds())
}

// ObservePipelineBuild records how long BuildAll took.
func ObservePipelineBuild(d time.Duration) {
	PipelineBuildDurationSeconds.Observe(d.Seconds())
}

// SetStagesRunning updates the count of stages registered with the supervisor.
func SetStagesRunning(count int) {
	StagesRunning.Set(float64(count))
}
