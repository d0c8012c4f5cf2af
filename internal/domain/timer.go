package domain

import (
	"fmt"
	"time"
)

// Timer accumulates running time for one stage across start/pause cycles.
// Running implies StartedAt is set.
type Timer struct {
	Running       bool       `json:"running"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	AccumulatedMs int64      `json:"accumulated_ms"`
}

// Start begins a running segment at now.
func (t *Timer) Start(now time.Time) error {
	if t.Running {
		return fmt.Errorf("%w: timer already running", ErrInvalidState)
	}
	ts := now.UTC()
	t.Running = true
	t.StartedAt = &ts
	return nil
}

// Pause folds the running segment into the accumulated total and returns the segment length.
func (t *Timer) Pause(now time.Time) (time.Duration, error) {
	if !t.Running {
		return 0, fmt.Errorf("%w: timer is not running", ErrInvalidState)
	}
	segment := t.segment(now)
	t.AccumulatedMs += segment.Milliseconds()
	t.Running = false
	t.StartedAt = nil
	return segment, nil
}

// Reset clears the timer unconditionally.
func (t *Timer) Reset() {
	t.Running = false
	t.StartedAt = nil
	t.AccumulatedMs = 0
}

// Elapsed reports accumulated time plus the live segment. It never mutates the timer.
func (t Timer) Elapsed(now time.Time) time.Duration {
	total := time.Duration(t.AccumulatedMs) * time.Millisecond
	if t.Running {
		total += t.segment(now)
	}
	return total
}

// Validate checks the running/startedAt invariant.
func (t Timer) Validate() error {
	if t.Running && t.StartedAt == nil {
		return fmt.Errorf("%w: running timer without started_at", ErrInvalidState)
	}
	if !t.Running && t.StartedAt != nil {
		return fmt.Errorf("%w: stopped timer with started_at", ErrInvalidState)
	}
	if t.AccumulatedMs < 0 {
		return fmt.Errorf("%w: negative accumulated time", ErrInvalidState)
	}
	return nil
}

// segment returns the live running delta, clamped at zero when the clock steps backwards.
func (t Timer) segment(now time.Time) time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	d := now.Sub(*t.StartedAt)
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Millisecond)
}

// FormatClock renders a duration as HH:MM:SS.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
