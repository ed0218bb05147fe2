// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"context"
	"time"

	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/processor"
)

// idleDelay is the pause used by stages that poll every input
// non-blockingly each Process call, to avoid busy-waiting when nothing is
// available — matching the reference implementation's own short sleeps in
// its console/log/file output processors.
const idleDelay = 10 * time.Millisecond

// drainAndForward pulls one available message from each of pc's inputs
// (non-blocking) and republishes it on pc's output unchanged, tagging the
// forwarded message with stageName as its new source. It reports how many
// messages it forwarded.
func drainAndForward(ctx context.Context, pc *processor.ProcessingContext, stageName string) (int, error) {
	forwarded := 0
	for name, sub := range pc.Inputs {
		in, ok := sub.TryRecv()
		if !ok {
			continue
		}
		out := message.Propagate(in, stageName, outputTopic(pc, name), in.Payload)
		if err := pc.Publish(out); err != nil {
			return forwarded, err
		}
		forwarded++
	}
	if forwarded == 0 {
		select {
		case <-ctx.Done():
			return forwarded, ctx.Err()
		case <-time.After(idleDelay):
		}
	}
	return forwarded, nil
}
