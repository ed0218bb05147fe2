// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

/*
Package metrics provides Prometheus instrumentation for the pipeline engine.

# Overview

The package exposes counters, gauges and histograms for:
  - Per-stage message throughput and drops
  - Per-stage Init/Process errors
  - Channel queue depth and subscriber counts
  - Watermark lag
  - Pipeline build/startup duration

# Metrics Endpoint

When the engine binary is started with -metrics-addr, metrics are served in
Prometheus text format at /metrics:

	engine -config pipeline.toml -metrics-addr :9090
	curl http://localhost:9090/metrics

# Usage Example

	metrics.RecordPublished(stageName)
	metrics.ObserveStageProcess(stageName, time.Since(start))
	metrics.SetChannelQueueDepth(channelName, depth)
*/
package metrics
