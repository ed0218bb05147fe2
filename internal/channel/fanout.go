// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package channel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/liminal-stream/engine/internal/message"
)

const fanoutTopic = "fanout"

// fanoutChannel delivers every message to every subscriber reliably, with
// backpressure on the slowest subscriber. This is watermill gochannel's
// native multi-subscriber behaviour unmodified: every Subscribe call gets
// its own buffered output channel, and Publish blocks until each
// subscriber's channel has room, so fanoutChannel is little more than a
// pass-through that also tracks whether any subscriber currently exists.
type fanoutChannel struct {
	gc     *gochannel.GoChannel
	ctx    context.Context
	cancel context.CancelFunc

	subscriberCount atomic.Int32
	closeOnce       sync.Once
	closed          atomic.Bool
}

func newFanoutChannel(capacity int) *fanoutChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &fanoutChannel{
		gc:     gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: int64(capacity)}, watermill.NopLogger{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *fanoutChannel) Type() Type { return TypeFanout }

func (c *fanoutChannel) Publish(msg message.Message) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.subscriberCount.Load() == 0 {
		return ErrAllReceiversDropped
	}
	return c.gc.Publish(fanoutTopic, wrapMessage(msg))
}

func (c *fanoutChannel) Subscribe() (Subscriber, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	ch, err := c.gc.Subscribe(c.ctx, fanoutTopic)
	if err != nil {
		return nil, err
	}
	c.subscriberCount.Add(1)
	return &gochannelSubscriber{ch: ch}, nil
}

func (c *fanoutChannel) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		_ = c.gc.Close()
	})
}
