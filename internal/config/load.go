// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from, and the remainder lower-cased and dot-joined
// for, every LIMINAL_-prefixed environment variable considered as an
// override (e.g. LIMINAL_OUTPUTS_SINK_OUTPUT -> outputs.sink.output).
const envPrefix = "LIMINAL_"

// defaults seeds koanf with the zero-value struct defaults before any file
// or environment layer is applied, mirroring the reference implementation's
// layered-config precedence (defaults < file < env).
type defaults struct {
	Inputs    map[string]StageConfig    `koanf:"inputs"`
	Pipelines map[string]PipelineConfig `koanf:"pipelines"`
	Outputs   map[string]StageConfig    `koanf:"outputs"`
}

// Load reads and merges configuration from, in ascending precedence: struct
// defaults, the TOML file at path, and LIMINAL_-prefixed environment
// variables. The result is validated with Validate before being returned.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults{}, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return Config{}, fmt.Errorf("config: loading %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", normalizeEnvKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalizeEnvKey(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s[len(envPrefix):] {
		switch {
		case r == '_':
			out = append(out, '.')
		case r >= 'A' && r <= 'Z':
			out = append(out, byte(r-'A'+'a'))
		default:
			out = append(out, byte(r))
		}
	}
	return string(out)
}
