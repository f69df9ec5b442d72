package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeComponent, false},
		{LevelDetail, ScopeComponent, true},
		{LevelDetail, ScopeDecl, false},
		{LevelDebug, ScopeDecl, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Fatalf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestStartSpanNestsThroughContext(t *testing.T) {
	ring := NewRingTracer(16, LevelDetail)
	ctx := WithTracer(context.Background(), ring)

	ctx, outer := StartSpan(ctx, ScopePass, "partition/solve")
	_, inner := StartSpan(ctx, ScopeComponent, "component#1")
	inner.End("")
	outer.End("done")

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].ParentID != outer.ID() {
		t.Fatalf("inner span parent = %d, want %d", events[1].ParentID, outer.ID())
	}
	if events[3].Detail != "done" || events[3].Kind != KindSpanEnd {
		t.Fatalf("unexpected last event: %+v", events[3])
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatText)
	Point(st, ScopeDecl, "place", "store::save → server", 0)
	if !strings.Contains(buf.String(), "• place (store::save → server)") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestNopSpanIsInert(t *testing.T) {
	ctx, span := StartSpan(context.Background(), ScopePass, "x")
	if span.ID() != 0 || CurrentSpan(ctx) != 0 {
		t.Fatalf("nop tracer must not allocate spans")
	}
	if span.End("") != 0 {
		t.Fatalf("nop span must report zero duration")
	}
}

func TestWithTracerKeepsCurrentSpan(t *testing.T) {
	first := NewRingTracer(8, LevelPhase)
	ctx, outer := StartSpan(WithTracer(context.Background(), first), ScopePass, "load")
	second := NewRingTracer(8, LevelPhase)
	ctx = WithTracer(ctx, second)
	if CurrentSpan(ctx) != outer.ID() || FromContext(ctx) != Tracer(second) {
		t.Fatalf("span %d, tracer %v after WithTracer", CurrentSpan(ctx), FromContext(ctx))
	}
	_, inner := StartSpan(ctx, ScopePass, "solve")
	inner.End("")
	if events := second.Snapshot(); len(events) != 2 || events[0].ParentID != outer.ID() {
		t.Fatalf("inner span must be parented to %d: %+v", outer.ID(), events)
	}
}
