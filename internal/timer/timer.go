// Package timer implements the rest-interval countdown state machine.
//
// The countdown is a cooperative 1 Hz tick: Tick never blocks and Run owns
// the ticker goroutine. Background continuity is handled with a wall-clock
// delta on Suspend/Wake rather than by replaying missed ticks, so accuracy
// never depends on tick delivery while the host is not scheduled.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/claude/repcoach/internal/models"
)

// State is the timer's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// EventType classifies timer events delivered to subscribers.
type EventType string

const (
	EventStarted   EventType = "started"
	EventPaused    EventType = "paused"
	EventResumed   EventType = "resumed"
	EventStopped   EventType = "stopped"
	EventSkipped   EventType = "skipped"
	EventAdjusted  EventType = "adjusted"
	EventCompleted EventType = "completed"
)

// Event is a state-change notification. Delivery is best-effort: slow
// subscribers drop events rather than block the tick.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
}

// Snapshot is an observable view of the timer at one instant.
type Snapshot struct {
	State             State                 `json:"state"`
	Remaining         int                   `json:"remaining"`
	Total             int                   `json:"total"`
	Progress          float64               `json:"progress"`
	Display           string                `json:"display"`
	ManuallyCompleted bool                  `json:"manually_completed"`
	Source            models.RestTimeSource `json:"source,omitempty"`
}

// Timer is a per-rest-interval countdown. All methods are safe for
// concurrent use; illegal transitions are idempotent no-ops.
type Timer struct {
	mu sync.Mutex

	state     State
	total     int
	remaining int
	source    models.RestTimeSource

	// manuallyCompleted marks remaining driven to 0 via Reduce. The timer
	// stays active until Stop; this never fires the completion event.
	manuallyCompleted bool

	adjustments []models.TimerAdjustment

	suspended   bool
	suspendedAt time.Time

	events chan Event
	alerts AlertScheduler
	now    func() time.Time
}

// Option configures a Timer.
type Option func(*Timer)

// WithAlertScheduler wires a deferred-alert capability, fired by the host
// platform when the countdown ends while the app is backgrounded.
func WithAlertScheduler(a AlertScheduler) Option {
	return func(t *Timer) { t.alerts = a }
}

// WithClock overrides the wall clock. Test use.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// New creates an idle timer.
func New(opts ...Option) *Timer {
	t := &Timer{
		state:  StateIdle,
		events: make(chan Event, 16),
		alerts: NopAlertScheduler{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Events returns the subscription channel. Buffered; events are dropped
// when the buffer is full.
func (t *Timer) Events() <-chan Event {
	return t.events
}

// Start begins a countdown of the given duration. Legal from Idle and
// Completed; ignored while the timer is active (returns false) unless
// force is set, in which case the running countdown is replaced.
// Starting clears the adjustment history.
func (t *Timer) Start(seconds int, source models.RestTimeSource, force bool) bool {
	if seconds <= 0 {
		return false
	}

	t.mu.Lock()
	if (t.state == StateRunning || t.state == StatePaused) && !force {
		t.mu.Unlock()
		return false
	}
	t.state = StateRunning
	t.total = seconds
	t.remaining = seconds
	t.source = source
	t.manuallyCompleted = false
	t.suspended = false
	t.adjustments = nil
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.alerts.CancelDeferredAlert()
	_ = t.alerts.ScheduleDeferredAlert(time.Duration(seconds) * time.Second)
	t.emit(EventStarted, snap)
	return true
}

// Pause halts the countdown. No-op unless Running.
func (t *Timer) Pause() {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}
	t.state = StatePaused
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.alerts.CancelDeferredAlert()
	t.emit(EventPaused, snap)
}

// Resume continues a paused countdown. No-op unless Paused.
func (t *Timer) Resume() {
	t.mu.Lock()
	if t.state != StatePaused {
		t.mu.Unlock()
		return
	}
	t.state = StateRunning
	remaining := t.remaining
	snap := t.snapshotLocked()
	t.mu.Unlock()

	_ = t.alerts.ScheduleDeferredAlert(time.Duration(remaining) * time.Second)
	t.emit(EventResumed, snap)
}

// Stop returns the timer to Idle from any state, clearing remaining/total.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.state = StateIdle
	t.total = 0
	t.remaining = 0
	t.manuallyCompleted = false
	t.suspended = false
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.alerts.CancelDeferredAlert()
	t.emit(EventStopped, snap)
}

// Skip abandons the countdown before natural completion. Like Stop, but
// records a Skipped adjustment capturing planned-vs-actual elapsed time
// for analytics. No-op when the timer is not active.
func (t *Timer) Skip() {
	t.mu.Lock()
	if t.state != StateRunning && t.state != StatePaused {
		t.mu.Unlock()
		return
	}
	t.adjustments = append(t.adjustments, models.TimerAdjustment{
		Type:              models.AdjustmentSkipped,
		OriginalRemaining: t.remaining,
		AdjustedRemaining: 0,
		Timestamp:         t.now(),
	})
	t.state = StateIdle
	t.total = 0
	t.remaining = 0
	t.manuallyCompleted = false
	t.suspended = false
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.alerts.CancelDeferredAlert()
	t.emit(EventSkipped, snap)
}

// Extend adds seconds to both remaining and total. Legal while active.
func (t *Timer) Extend(seconds int) {
	if seconds <= 0 {
		return
	}

	t.mu.Lock()
	if t.state != StateRunning && t.state != StatePaused {
		t.mu.Unlock()
		return
	}
	orig := t.remaining
	t.remaining += seconds
	t.total += seconds
	t.manuallyCompleted = false
	t.adjustments = append(t.adjustments, models.TimerAdjustment{
		Type:              models.AdjustmentExtended,
		OriginalRemaining: orig,
		AdjustedRemaining: t.remaining,
		Timestamp:         t.now(),
	})
	remaining := t.remaining
	running := t.state == StateRunning
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if running {
		t.alerts.CancelDeferredAlert()
		_ = t.alerts.ScheduleDeferredAlert(time.Duration(remaining) * time.Second)
	}
	t.emit(EventAdjusted, snap)
}

// Reduce subtracts seconds from remaining, floored at 0. Reaching exactly 0
// this way marks the timer manually completed: it stays active until Stop
// and never fires the natural-completion event.
func (t *Timer) Reduce(seconds int) {
	if seconds <= 0 {
		return
	}

	t.mu.Lock()
	if t.state != StateRunning && t.state != StatePaused {
		t.mu.Unlock()
		return
	}
	orig := t.remaining
	t.remaining -= seconds
	if t.remaining <= 0 {
		t.remaining = 0
		t.manuallyCompleted = true
	}
	t.adjustments = append(t.adjustments, models.TimerAdjustment{
		Type:              models.AdjustmentReduced,
		OriginalRemaining: orig,
		AdjustedRemaining: t.remaining,
		Timestamp:         t.now(),
	})
	remaining := t.remaining
	running := t.state == StateRunning
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if running {
		t.alerts.CancelDeferredAlert()
		if remaining > 0 {
			_ = t.alerts.ScheduleDeferredAlert(time.Duration(remaining) * time.Second)
		}
	}
	t.emit(EventAdjusted, snap)
}

// UndoLastAdjustment pops the most recent adjustment and reverses its
// numeric effect. Skipped entries cannot be undone. Returns false when
// there is nothing to undo.
func (t *Timer) UndoLastAdjustment() bool {
	t.mu.Lock()
	if t.state != StateRunning && t.state != StatePaused {
		t.mu.Unlock()
		return false
	}
	n := len(t.adjustments)
	if n == 0 {
		t.mu.Unlock()
		return false
	}
	last := t.adjustments[n-1]
	if last.Type == models.AdjustmentSkipped {
		t.mu.Unlock()
		return false
	}

	t.adjustments = t.adjustments[:n-1]
	switch last.Type {
	case models.AdjustmentExtended:
		delta := last.AdjustedRemaining - last.OriginalRemaining
		t.remaining -= delta
		t.total -= delta
		if t.remaining < 0 {
			t.remaining = 0
		}
	case models.AdjustmentReduced:
		t.remaining += last.OriginalRemaining - last.AdjustedRemaining
		t.manuallyCompleted = false
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(EventAdjusted, snap)
	return true
}

// Tick advances the countdown by one second. Cooperative: the owner calls
// it at 1 Hz (see Run). Ticks are ignored while suspended, paused, or
// after a manual reduce to zero.
func (t *Timer) Tick() {
	t.mu.Lock()
	if t.state != StateRunning || t.suspended || t.remaining <= 0 {
		t.mu.Unlock()
		return
	}
	t.remaining--
	if t.remaining > 0 || t.manuallyCompleted {
		t.mu.Unlock()
		return
	}
	t.completeLocked()
}

// Suspend captures the wall clock when the host stops scheduling ticks.
func (t *Timer) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning || t.suspended {
		return
	}
	t.suspended = true
	t.suspendedAt = t.now()
}

// Wake subtracts the actual elapsed wall-clock duration from remaining.
// If that drives remaining to zero, completion fires immediately.
func (t *Timer) Wake() {
	t.mu.Lock()
	if !t.suspended {
		t.mu.Unlock()
		return
	}
	t.suspended = false
	elapsed := int(t.now().Sub(t.suspendedAt) / time.Second)
	if t.state != StateRunning || elapsed <= 0 {
		t.mu.Unlock()
		return
	}

	if elapsed >= t.remaining {
		t.remaining = 0
		if t.manuallyCompleted {
			t.mu.Unlock()
			return
		}
		t.completeLocked()
		return
	}
	t.remaining -= elapsed
	t.mu.Unlock()
}

// completeLocked finishes a natural countdown. Called with t.mu held;
// releases it. The completion event fires exactly once per countdown.
func (t *Timer) completeLocked() {
	t.state = StateCompleted
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(EventCompleted, snap)
}

// Run drives the countdown at 1 Hz until ctx is done. It never blocks the
// caller beyond channel delivery of events, which is itself non-blocking.
func (t *Timer) Run(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// State returns the current lifecycle state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining returns the seconds left on the countdown.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Snapshot returns an observable view of the timer.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Adjustments returns a copy of the adjustment history.
func (t *Timer) Adjustments() []models.TimerAdjustment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.TimerAdjustment, len(t.adjustments))
	copy(out, t.adjustments)
	return out
}

func (t *Timer) snapshotLocked() Snapshot {
	s := Snapshot{
		State:             t.state,
		Remaining:         t.remaining,
		Total:             t.total,
		Display:           FormatSeconds(t.remaining),
		ManuallyCompleted: t.manuallyCompleted,
		Source:            t.source,
	}
	if t.total > 0 {
		s.Progress = 1 - float64(t.remaining)/float64(t.total)
	}
	return s
}

func (t *Timer) emit(typ EventType, snap Snapshot) {
	select {
	case t.events <- Event{Type: typ, Snapshot: snap}:
	default:
	}
}

// FormatSeconds renders a duration as mm:ss.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
