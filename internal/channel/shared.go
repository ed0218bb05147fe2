// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package channel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	wm "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/liminal-stream/engine/internal/message"
)

const sharedTopic = "shared"

// sharedChannel delivers each message to exactly one of potentially many
// competing subscribers (work-stealing), with backpressure on publish.
// watermill's gochannel fans every message out to each of its own
// subscriptions, so sharedChannel deliberately establishes exactly one
// internal subscription and hands every external Subscribe caller a handle
// onto that same channel: the Go runtime then distributes messages across
// whichever goroutine happens to be ready to receive, giving work-stealing
// semantics without needing a broker-side queue group.
type sharedChannel struct {
	gc     *gochannel.GoChannel
	ctx    context.Context
	cancel context.CancelFunc

	subOnce sync.Once
	sub     <-chan *wm.Message
	subErr  error

	closeOnce sync.Once
	closed    atomic.Bool
}

func newSharedChannel(capacity int) *sharedChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &sharedChannel{
		gc:     gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: int64(capacity)}, watermill.NopLogger{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *sharedChannel) Type() Type { return TypeShared }

func (c *sharedChannel) Publish(msg message.Message) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.gc.Publish(sharedTopic, wrapMessage(msg))
}

func (c *sharedChannel) Subscribe() (Subscriber, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.subOnce.Do(func() {
		c.sub, c.subErr = c.gc.Subscribe(c.ctx, sharedTopic)
	})
	if c.subErr != nil {
		return nil, c.subErr
	}
	return &gochannelSubscriber{ch: c.sub}, nil
}

func (c *sharedChannel) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		_ = c.gc.Close()
	})
}
