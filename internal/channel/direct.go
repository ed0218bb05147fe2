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

const directTopic = "direct"

// directChannel is a single-producer-friendly, single-consumer channel with
// backpressure: Publish blocks when the buffer is full, Subscribe may only
// succeed once. It is a thin gate in front of a private watermill gochannel
// Publisher/Subscriber pair, which already blocks Publish when the lone
// subscriber's buffer is full.
type directChannel struct {
	gc     *gochannel.GoChannel
	ctx    context.Context
	cancel context.CancelFunc

	subscribed atomic.Bool
	closeOnce  sync.Once
	closed     atomic.Bool
}

func newDirectChannel(capacity int) *directChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &directChannel{
		gc:     gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: int64(capacity)}, watermill.NopLogger{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *directChannel) Type() Type { return TypeDirect }

func (c *directChannel) Publish(msg message.Message) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.gc.Publish(directTopic, wrapMessage(msg))
}

func (c *directChannel) Subscribe() (Subscriber, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if !c.subscribed.CompareAndSwap(false, true) {
		return nil, ErrAlreadySubscribed
	}
	ch, err := c.gc.Subscribe(c.ctx, directTopic)
	if err != nil {
		return nil, err
	}
	return &gochannelSubscriber{ch: ch}, nil
}

func (c *directChannel) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		_ = c.gc.Close()
	})
}
