// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package logging

import "github.com/rs/zerolog"

// Component returns a child logger tagged with the given component name.
// Every engine subsystem (stage, pipeline, registry, channel, processor)
// obtains its logger this way so log lines can be filtered by component.
func Component(name string) zerolog.Logger {
	return With().Str("component", name).Logger()
}

// ComponentFor returns a child logger tagged with the given component and
// stage name, used by Stage instances to identify themselves in logs.
func ComponentFor(name, stage string) zerolog.Logger {
	return With().Str("component", name).Str("stage", stage).Logger()
}
