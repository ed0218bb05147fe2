// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package channel implements the four pub/sub delivery semantics stages use
// to exchange messages: Broadcast, Direct, Shared and Fanout. Every variant
// satisfies the same Channel interface; callers pick a variant at
// construction time from config and never see the concrete type again.
//
// Every variant is backed by a private watermill (github.com/ThreeDotsLabs/
// watermill) gochannel Publisher/Subscriber pair, the same in-process pub/sub
// primitive the reference stack's eventprocessor package wraps for NATS. The
// four delivery semantics differ only in how each variant consumes that
// underlying pub/sub: a thin pass-through for Fanout, a single-subscriber
// gate for Direct, one shared subscription fed to every caller for Shared,
// and a lossy ring buffer fed by a background pump for Broadcast, whose
// lagging-consumer drop policy has no watermill or stdlib equivalent.
package channel

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	wm "github.com/ThreeDotsLabs/watermill/message"

	"github.com/liminal-stream/engine/internal/message"
)

// Type identifies a channel's delivery semantics.
type Type string

const (
	// TypeBroadcast fans a message out to every current subscriber with no
	// backpressure; slow subscribers lag and may miss messages.
	TypeBroadcast Type = "broadcast"
	// TypeDirect delivers to exactly one subscriber with backpressure.
	TypeDirect Type = "direct"
	// TypeShared delivers each message to exactly one of many competing
	// subscribers, with backpressure.
	TypeShared Type = "shared"
	// TypeFanout delivers every message to every subscriber reliably, with
	// backpressure on the slowest subscriber.
	TypeFanout Type = "fanout"
)

// DefaultCapacity is used when a channel config omits an explicit capacity.
const DefaultCapacity = 128

// DefaultType is used when a channel config omits an explicit type.
const DefaultType = TypeBroadcast

var (
	// ErrAllReceiversDropped is returned by publish when no subscriber can
	// receive the message (e.g. a Fanout channel with no current
	// subscribers).
	ErrAllReceiversDropped = errors.New("channel: all receivers dropped")
	// ErrBackpressureUnsupported is reserved for channel kinds that cannot
	// express backpressure; unused in normal operation.
	ErrBackpressureUnsupported = errors.New("channel: backpressure unsupported")
	// ErrClosed is returned when publishing to, or subscribing on, a
	// channel that has already been closed.
	ErrClosed = errors.New("channel: closed")
	// ErrAlreadySubscribed is returned by a Direct channel's second call to
	// Subscribe; Direct channels own exactly one receiver handle.
	ErrAlreadySubscribed = errors.New("channel: direct channel already has a subscriber")
)

// Channel is the uniform publish/subscribe interface every variant exposes.
type Channel interface {
	// Publish delivers msg according to the channel's semantics. It blocks
	// if the variant applies backpressure; it never blocks for Broadcast.
	Publish(msg message.Message) error
	// Subscribe returns an independent receive handle. Direct channels
	// allow exactly one live subscriber at a time.
	Subscribe() (Subscriber, error)
	// Type reports the channel's delivery semantics.
	Type() Type
	// Close releases the channel's resources; subsequent Publish/Subscribe
	// calls return ErrClosed.
	Close()
}

// Subscriber is a receive handle obtained from Channel.Subscribe.
type Subscriber interface {
	// Recv blocks until a message is available or the channel closes, in
	// which case ok is false.
	Recv() (msg message.Message, ok bool)
	// TryRecv returns immediately; ok is false if nothing is available.
	TryRecv() (msg message.Message, ok bool)
}

// New constructs a Channel of the given type and capacity. A non-positive
// capacity is replaced with DefaultCapacity.
func New(kind Type, capacity int) Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	switch kind {
	case TypeDirect:
		return newDirectChannel(capacity)
	case TypeShared:
		return newSharedChannel(capacity)
	case TypeFanout:
		return newFanoutChannel(capacity)
	case TypeBroadcast:
		fallthrough
	default:
		return newBroadcastChannel(capacity)
	}
}

// domainPayloadKey is the context key under which a Message's original Go
// value is attached to its watermill envelope, so Payload (any) survives the
// round trip without requiring every stage's payload type to be JSON-safe.
type domainPayloadKey struct{}

// wrapMessage builds the watermill envelope for msg. Payload is additionally
// JSON-encoded on a best-effort basis for introspection and for any future
// out-of-process transport; in-process delivery always reads the original
// value back out of the envelope's context, never the encoded bytes.
func wrapMessage(msg message.Message) *wm.Message {
	envelope := wm.NewMessage(watermill.NewUUID(), encodedPayload(msg))
	envelope.Metadata.Set("source", msg.Source)
	envelope.Metadata.Set("topic", msg.Topic)
	envelope.SetContext(context.WithValue(envelope.Context(), domainPayloadKey{}, msg))
	return envelope
}

// unwrapMessage recovers the Message attached to a watermill envelope by
// wrapMessage. ok is false only if the envelope did not originate from this
// package (never expected in practice, since every channel variant is
// self-contained).
func unwrapMessage(envelope *wm.Message) (message.Message, bool) {
	msg, ok := envelope.Context().Value(domainPayloadKey{}).(message.Message)
	return msg, ok
}

func encodedPayload(msg message.Message) []byte {
	data, err := message.MarshalPayload(msg.Payload)
	if err != nil {
		return nil
	}
	return data
}

// gochannelSubscriber adapts a raw watermill subscription channel to the
// Subscriber interface, acknowledging every message immediately since the
// engine has no redelivery semantics of its own.
type gochannelSubscriber struct {
	ch <-chan *wm.Message
}

func (s *gochannelSubscriber) Recv() (message.Message, bool) {
	envelope, ok := <-s.ch
	if !ok {
		return message.Message{}, false
	}
	envelope.Ack()
	msg, _ := unwrapMessage(envelope)
	return msg, true
}

func (s *gochannelSubscriber) TryRecv() (message.Message, bool) {
	select {
	case envelope, ok := <-s.ch:
		if !ok {
			return message.Message{}, false
		}
		envelope.Ack()
		msg, _ := unwrapMessage(envelope)
		return msg, true
	default:
		return message.Message{}, false
	}
}
