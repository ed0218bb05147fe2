// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

// Package message defines the immutable Message and TimingInfo types that
// flow through every channel in the engine.
package message

import (
	"time"

	json "github.com/goccy/go-json"
)

// TimingInfo carries the timing metadata attached to every Message.
type TimingInfo struct {
	EventTime          time.Time
	IngestionTime      time.Time
	ProcessingDeadline *time.Time
	Watermark          *time.Time
	SequenceID         *uint64
	TraceID            *string
}

// NowTiming returns TimingInfo with both event and ingestion time set to now.
func NowTiming() TimingInfo {
	now := time.Now()
	return TimingInfo{EventTime: now, IngestionTime: now}
}

// WithEventTime returns TimingInfo with the given event time; ingestion time
// is set to the same value, matching the reference semantics for simulated
// or replayed data where no separate ingestion clock exists.
func WithEventTime(eventTime time.Time) TimingInfo {
	return TimingInfo{EventTime: eventTime, IngestionTime: eventTime}
}

// WithTimes returns TimingInfo with explicit event and ingestion times.
func WithTimes(eventTime, ingestionTime time.Time) TimingInfo {
	return TimingInfo{EventTime: eventTime, IngestionTime: ingestionTime}
}

// ProcessingLatency returns ingestion_time - event_time, saturating at zero.
func (t TimingInfo) ProcessingLatency() time.Duration {
	d := t.IngestionTime.Sub(t.EventTime)
	if d < 0 {
		return 0
	}
	return d
}

// IsDeadlineExceeded reports whether now() is past the processing deadline.
func (t TimingInfo) IsDeadlineExceeded() bool {
	return t.ProcessingDeadline != nil && time.Now().After(*t.ProcessingDeadline)
}

// TimeUntilDeadline returns the remaining time to the deadline, if any and
// if it has not already passed.
func (t TimingInfo) TimeUntilDeadline() (time.Duration, bool) {
	if t.ProcessingDeadline == nil {
		return 0, false
	}
	d := time.Until(*t.ProcessingDeadline)
	if d < 0 {
		return 0, false
	}
	return d, true
}

// IsLate reports whether the event time is behind the current watermark.
func (t TimingInfo) IsLate() bool {
	return t.Watermark != nil && t.EventTime.Before(*t.Watermark)
}

// Message is the immutable unit of data flowing between stages.
type Message struct {
	Source  string
	Topic   string
	Payload any

	// IngestionTimestampMS is the legacy milliseconds-since-epoch field,
	// retained for simple consumers that don't need full TimingInfo.
	IngestionTimestampMS int64

	Timing TimingInfo
}

// New creates a Message with event and ingestion time set to now().
func New(source, topic string, payload any) Message {
	timing := NowTiming()
	return Message{
		Source:               source,
		Topic:                topic,
		Payload:              payload,
		IngestionTimestampMS: timing.IngestionTime.UnixMilli(),
		Timing:               timing,
	}
}

// NewWithEventTime creates a Message with an explicit event time and
// ingestion time set to now().
func NewWithEventTime(source, topic string, payload any, eventTime time.Time) Message {
	timing := TimingInfo{EventTime: eventTime, IngestionTime: time.Now()}
	return Message{
		Source:               source,
		Topic:                topic,
		Payload:              payload,
		IngestionTimestampMS: timing.IngestionTime.UnixMilli(),
		Timing:               timing,
	}
}

// WithDeadline returns a copy of m with the processing deadline set.
func (m Message) WithDeadline(deadline time.Time) Message {
	m.Timing.ProcessingDeadline = &deadline
	return m
}

// WithWatermark returns a copy of m with the watermark set.
func (m Message) WithWatermark(watermark time.Time) Message {
	m.Timing.Watermark = &watermark
	return m
}

// WithSequenceID returns a copy of m with the sequence id set.
func (m Message) WithSequenceID(id uint64) Message {
	m.Timing.SequenceID = &id
	return m
}

// WithTraceID returns a copy of m with the trace id set.
func (m Message) WithTraceID(id string) Message {
	m.Timing.TraceID = &id
	return m
}

// MarkProcessedBy returns a copy of m re-attributed to the given stage name.
func (m Message) MarkProcessedBy(stageName string) Message {
	m.Source = stageName
	return m
}

// ShouldProcess reports whether the message has not exceeded its deadline.
func (m Message) ShouldProcess() bool {
	return !m.Timing.IsDeadlineExceeded()
}

// Propagate builds a child message that carries over event_time, watermark,
// sequence_id and trace_id from src, refreshes ingestion_time to now(), and
// copies the processing deadline only if it has not yet been exceeded.
func Propagate(src Message, newSource, newTopic string, newPayload any) Message {
	child := New(newSource, newTopic, newPayload)
	child.Timing.EventTime = src.Timing.EventTime
	child.Timing.Watermark = src.Timing.Watermark
	child.Timing.SequenceID = src.Timing.SequenceID
	child.Timing.TraceID = src.Timing.TraceID

	if src.Timing.ProcessingDeadline != nil && time.Now().Before(*src.Timing.ProcessingDeadline) {
		d := *src.Timing.ProcessingDeadline
		child.Timing.ProcessingDeadline = &d
	}
	return child
}

// MarshalPayload serialises the payload using the engine's JSON codec.
func MarshalPayload(v any) ([]byte, error) {
	return json.Marshal(v)
}

// UnmarshalPayload deserialises into v using the engine's JSON codec.
func UnmarshalPayload(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
