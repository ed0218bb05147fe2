// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Command engine loads a pipeline configuration file, builds and wires every
// declared stage, and runs them under a supervisor tree until SIGINT or
// SIGTERM.
//
// Usage:
//
//	engine -config pipeline.toml
//	engine -config pipeline.toml -log-level debug
//	engine -list-processors
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/liminal-stream/engine/internal/builtin"
	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/logging"
	"github.com/liminal-stream/engine/internal/pipeline"
	"github.com/liminal-stream/engine/internal/processor"
)

func main() {
	configPath := flag.String("config", "", "path to the pipeline configuration file (TOML)")
	logLevel := flag.String("log-level", "info", "log level: trace, debug, info, warn, error")
	logFormat := flag.String("log-format", "console", "log format: console or json")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on, e.g. :9090 (disabled if empty)")
	listProcessors := flag.Bool("list-processors", false, "list registered processor types and exit")
	flag.Parse()

	// LIMINAL_LOG_LEVEL, when set, takes precedence over -log-level.
	if v := os.Getenv("LIMINAL_LOG_LEVEL"); v != "" {
		*logLevel = v
	}

	if *listProcessors {
		for _, name := range processor.List() {
			fmt.Println(name)
		}
		return
	}

	logging.Init(logging.Config{Level: *logLevel, Format: *logFormat, Caller: false})

	if *configPath == "" {
		logging.Fatal().Msg("missing required -config flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Info().Str("path", *configPath).Int("stages", len(cfg.AllStages())).Msg("configuration loaded")

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logging.Info().Str("addr", *metricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil { //nolint:gosec // internal metrics endpoint, no client timeouts required
				logging.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	mgr := pipeline.NewManager(cfg)

	if err := mgr.BuildAll(); err != nil {
		logging.Error().Err(err).Msg("failed to build stages")
		os.Exit(2)
	}
	logging.Info().Msg("stages built")

	if err := mgr.ConnectStages(); err != nil {
		logging.Error().Err(err).Msg("failed to connect stages")
		os.Exit(2)
	}
	logging.Info().Msg("stages connected")

	if err := mgr.StartAll(); err != nil {
		logging.Error().Err(err).Msg("failed to start stages")
		os.Exit(2)
	}
	logging.Info().Msg("stages started, pipeline running")

	if err := mgr.WaitForAll(context.Background()); err != nil {
		logging.Error().Err(err).Msg("pipeline exited with error")
		os.Exit(2)
	}

	logging.Info().Msg("pipeline stopped gracefully")
}
