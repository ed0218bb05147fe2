// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package channel

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wm "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/liminal-stream/engine/internal/message"
)

const broadcastTopic = "broadcast"

// broadcastChannel is a lossy fan-out: every subscriber gets every message
// published after it subscribed, except that a subscriber which falls more
// than capacity messages behind the producer has lagged and its Recv
// reports closed. Publish hands messages to a private watermill gochannel
// Publisher; a single background pump drains the one corresponding
// Subscriber and writes into the ring buffer below, which implements the
// lossy/lagging-consumer policy itself. Neither watermill nor the standard
// library has anything resembling tokio::sync::broadcast's drop-on-lag
// semantics, so that part remains hand-rolled on top of a genuine watermill
// Publisher/Subscriber pair rather than directly on a bare Go channel.
type broadcastChannel struct {
	gc     *gochannel.GoChannel
	ctx    context.Context
	cancel context.CancelFunc

	capacity int

	mu     sync.Mutex
	cond   *sync.Cond
	ring   []message.Message
	seq    []uint64 // sequence number stored at each ring slot
	head   uint64    // next sequence number to be written
	closed bool
}

func newBroadcastChannel(capacity int) *broadcastChannel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &broadcastChannel{
		gc:       gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: int64(capacity) * 4}, watermill.NopLogger{}),
		ctx:      ctx,
		cancel:   cancel,
		capacity: capacity,
		ring:     make([]message.Message, capacity),
		seq:      make([]uint64, capacity),
	}
	for i := range c.seq {
		c.seq[i] = ^uint64(0) // sentinel: slot never written
	}
	c.cond = sync.NewCond(&c.mu)

	if pump, err := c.gc.Subscribe(ctx, broadcastTopic); err == nil {
		go c.pump(pump)
	}
	return c
}

// pump drains the channel's single internal watermill subscription and
// feeds each message into the ring buffer, acknowledging immediately since
// the engine has no redelivery semantics.
func (c *broadcastChannel) pump(ch <-chan *wm.Message) {
	for envelope := range ch {
		msg, _ := unwrapMessage(envelope)
		envelope.Ack()
		c.enqueue(msg)
	}
}

func (c *broadcastChannel) enqueue(msg message.Message) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	slot := c.head % uint64(c.capacity)
	c.ring[slot] = msg
	c.seq[slot] = c.head
	c.head++
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *broadcastChannel) Type() Type { return TypeBroadcast }

func (c *broadcastChannel) Publish(msg message.Message) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return c.gc.Publish(broadcastTopic, wrapMessage(msg))
}

func (c *broadcastChannel) Subscribe() (Subscriber, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	return &broadcastSubscriber{c: c, next: c.head}, nil
}

func (c *broadcastChannel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cond.Broadcast()
	c.cancel()
	_ = c.gc.Close()
}

type broadcastSubscriber struct {
	c      *broadcastChannel
	next   uint64
	lagged bool
}

// Lagged reports whether this subscriber has already missed messages and
// is therefore permanently closed, matching the original Rust semantics
// where a lagged broadcast receiver is treated the same as a closed one.
func (s *broadcastSubscriber) Lagged() bool { return s.lagged }

func (s *broadcastSubscriber) Recv() (message.Message, bool) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.lagged {
		return message.Message{}, false
	}

	for {
		if oldest := c.oldestAvailableLocked(); s.next < oldest {
			s.lagged = true
			return message.Message{}, false
		}
		if s.next < c.head {
			slot := s.next % uint64(c.capacity)
			msg := c.ring[slot]
			s.next++
			return msg, true
		}
		if c.closed {
			return message.Message{}, false
		}
		c.cond.Wait()
	}
}

func (s *broadcastSubscriber) TryRecv() (message.Message, bool) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.lagged {
		return message.Message{}, false
	}
	if oldest := c.oldestAvailableLocked(); s.next < oldest {
		s.lagged = true
		return message.Message{}, false
	}
	if s.next >= c.head {
		return message.Message{}, false
	}
	slot := s.next % uint64(c.capacity)
	msg := c.ring[slot]
	s.next++
	return msg, true
}

// oldestAvailableLocked returns the oldest sequence number still present in
// the ring buffer. Caller must hold c.mu.
func (c *broadcastChannel) oldestAvailableLocked() uint64 {
	if c.head < uint64(c.capacity) {
		return 0
	}
	return c.head - uint64(c.capacity)
}
