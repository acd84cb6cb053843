// Package timer implements the local study countdown. It is independent of
// the application state store.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle state of a Countdown.
type State int

const (
	Idle State = iota
	Running
	Paused
	Completed
	Stopped // ended early by the user
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Done reports whether s is a terminal state.
func (s State) Done() bool { return s == Completed || s == Stopped }

// Countdown counts down from a duration one second per tick while running.
// The completion callback runs exactly once, when the remaining time reaches
// zero; stopping early never runs it.
type Countdown struct {
	mu         sync.Mutex
	total      time.Duration
	remaining  time.Duration
	state      State
	onComplete func()
	interval   time.Duration
}

// NewCountdown returns an idle countdown of the given number of minutes.
func NewCountdown(minutes int, onComplete func()) *Countdown {
	d := time.Duration(minutes) * time.Minute
	return NewCountdownFrom(d, d, onComplete)
}

// NewCountdownFrom returns an idle countdown of total length with remaining
// time left, used to resume a session that started earlier.
func NewCountdownFrom(total, remaining time.Duration, onComplete func()) *Countdown {
	remaining = max(min(remaining, total), 0)
	return &Countdown{
		total:      total,
		remaining:  remaining.Truncate(time.Second),
		onComplete: onComplete,
		interval:   time.Second,
	}
}

// Start moves an idle countdown to running. It reports whether the state changed.
func (c *Countdown) Start() bool {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return false
	}
	if c.remaining <= 0 {
		c.mu.Unlock()
		c.complete()
		return true
	}
	c.state = Running
	c.mu.Unlock()
	return true
}

// Pause suspends a running countdown, keeping the remaining time.
func (c *Countdown) Pause() bool {
	return c.transition(Running, Paused)
}

// Resume continues a paused countdown.
func (c *Countdown) Resume() bool {
	return c.transition(Paused, Running)
}

// Stop ends the countdown early. It has no effect once the countdown is done.
func (c *Countdown) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Done() {
		return false
	}
	c.state = Stopped
	return true
}

func (c *Countdown) transition(from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return false
	}
	c.state = to
	return true
}

// Tick advances a running countdown by one second and returns the remaining
// time. Ticks in any other state are ignored.
func (c *Countdown) Tick() time.Duration {
	c.mu.Lock()
	if c.state != Running {
		r := c.remaining
		c.mu.Unlock()
		return r
	}
	c.remaining -= time.Second
	if c.remaining > 0 {
		r := c.remaining
		c.mu.Unlock()
		return r
	}
	c.mu.Unlock()
	c.complete()
	return 0
}

func (c *Countdown) complete() {
	c.mu.Lock()
	if c.state.Done() {
		c.mu.Unlock()
		return
	}
	c.remaining = 0
	c.state = Completed
	fn := c.onComplete
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Remaining returns the time left.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Elapsed returns how much of the countdown has run.
func (c *Countdown) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total - c.remaining
}

// State returns the current state.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run drives Tick once per second until the countdown is done or ctx is
// cancelled. onTick, if non-nil, receives the remaining time after each tick.
func (c *Countdown) Run(ctx context.Context, onTick func(time.Duration)) error {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		if c.State().Done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r := c.Tick()
			if onTick != nil {
				onTick(r)
			}
		}
	}
}

// Format renders d as MM:SS. Minutes are not wrapped into hours.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
