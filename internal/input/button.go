package input

import "time"

// DefaultRepeatInterval is the auto-repeat cadence for buttons that hold a
// repeat timer.
const DefaultRepeatInterval = 100 * time.Millisecond

// Button tracks a debounced button state and a monotonic press counter.
// A press is counted once per false→true transition. If a repeat interval is
// set, the debounced state is forcibly reopened once the deadline elapses
// while the button is still physically held, so the next true sample counts
// again (auto-repeat).
type Button struct {
	pressed  bool
	count    int
	repeat   time.Duration
	deadline time.Time
}

// NewButton creates a button without auto-repeat.
func NewButton() Button {
	return Button{}
}

// NewRepeatButton creates a button that auto-repeats at the given interval
// while held.
func NewRepeatButton(interval time.Duration) Button {
	return Button{repeat: interval}
}

// Observe feeds one raw sample. Returns true on a rising edge.
func (b *Button) Observe(now time.Time, down bool) bool {
	if b.pressed && b.repeat > 0 && !b.deadline.IsZero() && now.After(b.deadline) {
		// Deadline elapsed while held: reopen so this sample can re-trigger.
		b.pressed = false
	}

	switch {
	case down && !b.pressed:
		b.pressed = true
		b.count++
		if b.repeat > 0 {
			b.deadline = now.Add(b.repeat)
		}
		return true
	case !down && b.pressed:
		b.pressed = false
		b.deadline = time.Time{}
	}
	return false
}

// Pressed returns the current debounced state.
func (b *Button) Pressed() bool {
	return b.pressed
}

// TakeCount returns the accumulated press count and resets it to zero.
// This is the once-per-tick drain operation.
func (b *Button) TakeCount() int {
	c := b.count
	b.count = 0
	return c
}

// Reset clears both the counter and the debounce state. Used when a new
// input device appears, to discard stale phantom presses.
func (b *Button) Reset() {
	b.pressed = false
	b.count = 0
	b.deadline = time.Time{}
}
