// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package timing

import (
	"testing"
	"time"

	"github.com/liminal-stream/engine/internal/message"
)

func TestHeuristicWatermarkNeedsAtLeastTenSamples(t *testing.T) {
	mgr := NewWatermarkManager(Config{
		WatermarkStrategy: WatermarkStrategy{Kind: StrategyHeuristic, Percentile: 50},
		MaxLateness:       time.Second,
	})

	base := time.Now()
	for i := 0; i < 9; i++ {
		m := message.NewWithEventTime("s", "t", nil, base.Add(time.Duration(i)*time.Millisecond))
		if _, ok := mgr.Update(m); ok {
			t.Fatalf("expected no watermark before 10 samples, got one at sample %d", i)
		}
	}
	m := message.NewWithEventTime("s", "t", nil, base.Add(10*time.Millisecond))
	if _, ok := mgr.Update(m); !ok {
		t.Fatal("expected a watermark once 10 samples accumulated")
	}
}

func TestWatermarkIsMonotonicallyClamped(t *testing.T) {
	mgr := NewWatermarkManager(Config{
		WatermarkStrategy: WatermarkStrategy{Kind: StrategyPunctuated, Field: "ts"},
		MaxLateness:       0,
	})

	early := time.Now()
	late := early.Add(-time.Hour) // a candidate earlier than one already emitted

	m1 := message.New("s", "t", map[string]any{"ts": float64(early.UnixMilli())})
	wm1, ok := mgr.Update(m1)
	if !ok {
		t.Fatal("expected first watermark")
	}

	m2 := message.New("s", "t", map[string]any{"ts": float64(late.UnixMilli())})
	wm2, ok := mgr.Update(m2)
	if !ok {
		t.Fatal("expected second watermark")
	}
	if wm2.Before(wm1) {
		t.Fatalf("expected clamped watermark to never regress: first=%v second=%v", wm1, wm2)
	}
}

func TestShouldDropOrdersDeadlineThenLateThenJitter(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)

	deadlineExceeded := message.Message{Timing: message.TimingInfo{
		EventTime: now, IngestionTime: now, ProcessingDeadline: &past,
	}}
	if !ShouldDrop(deadlineExceeded, DefaultConfig()) {
		t.Fatal("expected deadline-exceeded message to be dropped")
	}

	watermark := now.Add(time.Minute)
	late := message.Message{Timing: message.TimingInfo{
		EventTime: now, IngestionTime: now, Watermark: &watermark,
	}}
	if !ShouldDrop(late, DefaultConfig()) {
		t.Fatal("expected late message to be dropped")
	}

	jitter := time.Millisecond
	tooLate := message.Message{Timing: message.TimingInfo{
		EventTime: now, IngestionTime: now.Add(time.Second),
	}}
	cfg := DefaultConfig()
	cfg.JitterBounds = &jitter
	if !ShouldDrop(tooLate, cfg) {
		t.Fatal("expected jitter-bounds-exceeded message to be dropped")
	}
}

func TestParseTimestampRFC3339(t *testing.T) {
	if _, ok := ParseTimestamp("2024-01-02T15:04:05Z"); !ok {
		t.Fatal("expected RFC3339 timestamp to parse")
	}
	if _, ok := ParseTimestamp("not-a-timestamp"); ok {
		t.Fatal("expected invalid timestamp to fail parsing")
	}
}
