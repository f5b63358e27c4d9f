package timer

import (
	"testing"
	"time"

	"github.com/claude/repcoach/internal/models"
)

// fakeClock is a controllable wall clock for suspend/wake tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFake() (*Timer, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.now)), clock
}

func drain(t *Timer) []Event {
	var out []Event
	for {
		select {
		case ev := <-t.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestStartAndTickToCompletion(t *testing.T) {
	tm := New()
	if !tm.Start(3, models.SourceGlobalDefault, false) {
		t.Fatal("Start returned false from Idle")
	}
	if got := tm.State(); got != StateRunning {
		t.Fatalf("state = %q, want running", got)
	}

	tm.Tick()
	tm.Tick()
	if got := tm.Remaining(); got != 1 {
		t.Errorf("remaining = %d, want 1", got)
	}
	tm.Tick()
	if got := tm.State(); got != StateCompleted {
		t.Errorf("state = %q, want completed after countdown", got)
	}

	events := drain(tm)
	var completed int
	for _, ev := range events {
		if ev.Type == EventCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("completion events = %d, want exactly 1", completed)
	}

	// Further ticks must not re-fire completion.
	tm.Tick()
	if events := drain(tm); len(events) != 0 {
		t.Errorf("got %d events after completion, want 0", len(events))
	}
}

func TestStartRejectedWhileActiveUnlessForced(t *testing.T) {
	tm := New()
	tm.Start(60, models.SourceGlobalDefault, false)
	if tm.Start(30, models.SourceGlobalDefault, false) {
		t.Error("Start without force succeeded while running")
	}
	if got := tm.Remaining(); got != 60 {
		t.Errorf("remaining = %d, want 60 after rejected start", got)
	}

	if !tm.Start(30, models.SourceExerciseSpecific, true) {
		t.Error("forced Start failed while running")
	}
	if got := tm.Remaining(); got != 30 {
		t.Errorf("remaining = %d, want 30 after forced restart", got)
	}
}

func TestStartRejectsNonPositiveDuration(t *testing.T) {
	tm := New()
	if tm.Start(0, models.SourceGlobalDefault, false) {
		t.Error("Start(0) succeeded")
	}
	if tm.Start(-10, models.SourceGlobalDefault, false) {
		t.Error("Start(-10) succeeded")
	}
}

func TestPauseResumeIdempotent(t *testing.T) {
	tm := New()
	tm.Start(60, models.SourceGlobalDefault, false)

	tm.Pause()
	if got := tm.State(); got != StatePaused {
		t.Fatalf("state = %q, want paused", got)
	}
	tm.Tick()
	if got := tm.Remaining(); got != 60 {
		t.Errorf("remaining = %d, want 60 while paused", got)
	}
	drain(tm)

	// Pausing a paused timer and resuming a running timer are no-ops.
	tm.Pause()
	if events := drain(tm); len(events) != 0 {
		t.Errorf("double Pause emitted %d events, want 0", len(events))
	}
	tm.Resume()
	if got := tm.State(); got != StateRunning {
		t.Fatalf("state = %q, want running after resume", got)
	}
	drain(tm)
	tm.Resume()
	if events := drain(tm); len(events) != 0 {
		t.Errorf("double Resume emitted %d events, want 0", len(events))
	}
}

func TestStopFromAnyState(t *testing.T) {
	tm := New()

	tm.Start(60, models.SourceGlobalDefault, false)
	tm.Stop()
	if got := tm.State(); got != StateIdle {
		t.Errorf("state = %q, want idle after stop while running", got)
	}
	if got := tm.Remaining(); got != 0 {
		t.Errorf("remaining = %d, want 0 after stop", got)
	}

	tm.Start(60, models.SourceGlobalDefault, false)
	tm.Pause()
	tm.Stop()
	if got := tm.State(); got != StateIdle {
		t.Errorf("state = %q, want idle after stop while paused", got)
	}
}

func TestExtendReduceSymmetry(t *testing.T) {
	tm := New()
	tm.Start(60, models.SourceGlobalDefault, false)

	tm.Extend(30)
	if got := tm.Remaining(); got != 90 {
		t.Fatalf("remaining = %d, want 90 after extend", got)
	}
	if got := tm.Snapshot().Total; got != 90 {
		t.Fatalf("total = %d, want 90 after extend", got)
	}

	tm.Reduce(30)
	if got := tm.Remaining(); got != 60 {
		t.Errorf("remaining = %d, want 60 after symmetric reduce", got)
	}
	if got := len(tm.Adjustments()); got != 2 {
		t.Errorf("adjustments = %d, want 2", got)
	}
}

// TestReduceToZeroStaysActive verifies the manual-completion path: driving
// remaining to exactly zero via Reduce does not complete the countdown. The
// timer stays active, ignores ticks, and only Stop releases it.
func TestReduceToZeroStaysActive(t *testing.T) {
	tm := New()
	tm.Start(60, models.SourceGlobalDefault, false)
	tm.Extend(30)
	drain(tm)

	tm.Reduce(100)
	if got := tm.Remaining(); got != 0 {
		t.Fatalf("remaining = %d, want 0 floored", got)
	}
	if got := tm.State(); got != StateRunning {
		t.Fatalf("state = %q, want running after reduce to zero", got)
	}
	snap := tm.Snapshot()
	if !snap.ManuallyCompleted {
		t.Error("snapshot not marked manually completed")
	}

	tm.Tick()
	if got := tm.State(); got != StateRunning {
		t.Errorf("state = %q, tick must not complete a manually completed timer", got)
	}
	for _, ev := range drain(tm) {
		if ev.Type == EventCompleted {
			t.Error("completion event fired for a manual reduce to zero")
		}
	}

	tm.Stop()
	if got := tm.State(); got != StateIdle {
		t.Errorf("state = %q, want idle after stop", got)
	}
}

func TestUndoExtend(t *testing.T) {
	tm := New()
	tm.Start(60, models.SourceGlobalDefault, false)
	tm.Extend(30)

	if !tm.UndoLastAdjustment() {
		t.Fatal("undo returned false with one adjustment recorded")
	}
	if got := tm.Remaining(); got != 60 {
		t.Errorf("remaining = %d, want 60 after undo", got)
	}
	if got := tm.Snapshot().Total; got != 60 {
		t.Errorf("total = %d, want 60 after undo", got)
	}
	if got := len(tm.Adjustments()); got != 0 {
		t.Errorf("adjustments = %d, want 0 after undo", got)
	}
	if tm.UndoLastAdjustment() {
		t.Error("undo succeeded with empty history")
	}
}

func TestUndoReduceRestoresManualCompletion(t *testing.T) {
	tm := New()
	tm.Start(60, models.SourceGlobalDefault, false)
	tm.Reduce(60)
	if !tm.Snapshot().ManuallyCompleted {
		t.Fatal("expected manual completion after reduce to zero")
	}

	if !tm.UndoLastAdjustment() {
		t.Fatal("undo returned false")
	}
	if got := tm.Remaining(); got != 60 {
		t.Errorf("remaining = %d, want 60 restored", got)
	}
	if tm.Snapshot().ManuallyCompleted {
		t.Error("manual completion flag survived the undo")
	}
}

func TestSkipRecordsAdjustmentAndIsNotUndoable(t *testing.T) {
	tm := New()
	tm.Start(60, models.SourceGlobalDefault, false)
	tm.Tick()
	tm.Skip()

	if got := tm.State(); got != StateIdle {
		t.Fatalf("state = %q, want idle after skip", got)
	}
	adj := tm.Adjustments()
	if len(adj) != 1 {
		t.Fatalf("adjustments = %d, want 1", len(adj))
	}
	if adj[0].Type != models.AdjustmentSkipped {
		t.Errorf("adjustment type = %q, want skipped", adj[0].Type)
	}
	if adj[0].OriginalRemaining != 59 || adj[0].AdjustedRemaining != 0 {
		t.Errorf("adjustment = %d -> %d, want 59 -> 0", adj[0].OriginalRemaining, adj[0].AdjustedRemaining)
	}
	if tm.UndoLastAdjustment() {
		t.Error("skip must not be undoable")
	}
}

func TestAdjustIgnoredWhenIdle(t *testing.T) {
	tm := New()
	tm.Extend(30)
	tm.Reduce(30)
	if got := len(tm.Adjustments()); got != 0 {
		t.Errorf("adjustments = %d, want 0 while idle", got)
	}
}

// TestSuspendWakeShortGap verifies wall-clock continuity: a background gap
// shorter than the remaining time subtracts the elapsed duration.
func TestSuspendWakeShortGap(t *testing.T) {
	tm, clock := newFake()
	tm.Start(120, models.SourceGlobalDefault, false)

	tm.Suspend()
	tm.Tick()
	if got := tm.Remaining(); got != 120 {
		t.Errorf("remaining = %d, ticks must be ignored while suspended", got)
	}

	clock.advance(45 * time.Second)
	tm.Wake()
	if got := tm.Remaining(); got != 75 {
		t.Errorf("remaining = %d, want 75 after 45s gap", got)
	}
	if got := tm.State(); got != StateRunning {
		t.Errorf("state = %q, want running after wake", got)
	}
}

// TestSuspendWakeElapsedPast verifies that a gap spanning the whole
// countdown completes the timer immediately on wake.
func TestSuspendWakeElapsedPast(t *testing.T) {
	tm, clock := newFake()
	tm.Start(60, models.SourceGlobalDefault, false)
	drain(tm)

	tm.Suspend()
	clock.advance(5 * time.Minute)
	tm.Wake()

	if got := tm.State(); got != StateCompleted {
		t.Fatalf("state = %q, want completed after long gap", got)
	}
	var completed int
	for _, ev := range drain(tm) {
		if ev.Type == EventCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("completion events = %d, want 1", completed)
	}
}

func TestWakeWithoutSuspendIsNoop(t *testing.T) {
	tm, _ := newFake()
	tm.Start(60, models.SourceGlobalDefault, false)
	tm.Wake()
	if got := tm.Remaining(); got != 60 {
		t.Errorf("remaining = %d, want 60", got)
	}
}

func TestSnapshotProgressAndDisplay(t *testing.T) {
	tm := New()
	tm.Start(100, models.SourceExerciseSpecific, false)
	for i := 0; i < 25; i++ {
		tm.Tick()
	}

	snap := tm.Snapshot()
	if snap.Progress != 0.25 {
		t.Errorf("progress = %v, want 0.25", snap.Progress)
	}
	if snap.Display != "01:15" {
		t.Errorf("display = %q, want 01:15", snap.Display)
	}
	if snap.Source != models.SourceExerciseSpecific {
		t.Errorf("source = %q, want exercise_specific", snap.Source)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{5, "00:05"},
		{59, "00:59"},
		{60, "01:00"},
		{90, "01:30"},
		{3600, "60:00"},
		{-3, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatSeconds(tt.in); got != tt.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
