// Package round tracks the identity and phase of the active round.
package round

import (
	"strconv"
	"sync"
)

// Phase names the round lifecycle states.
type Phase string

const (
	// PhaseWaiting means no descent is active; the craft waits for the
	// start button.
	PhaseWaiting Phase = "waiting"
	// PhaseFlying means the descent is in progress.
	PhaseFlying Phase = "flying"
	// PhaseDown means the craft has reached the surface and the report
	// is final until the next reset.
	PhaseDown Phase = "down"
)

// Context holds the current round identity and phase.
type Context struct {
	mu    sync.RWMutex
	id    uint64
	seed  uint64
	phase Phase
}

// NewContext creates a context with no round active.
func NewContext() *Context {
	return &Context{phase: PhaseWaiting}
}

// Begin marks the start of a new round.
func (c *Context) Begin(id, seed uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.seed = seed
	c.phase = PhaseFlying
}

// SetPhase transitions the round phase.
func (c *Context) SetPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = p
}

// ID returns the active round id, zero when none has started.
func (c *Context) ID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Seed returns the active round's terrain seed.
func (c *Context) Seed() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seed
}

// SeedString returns the seed in the decimal form used on the wire.
func (c *Context) SeedString() string {
	return strconv.FormatUint(c.Seed(), 10)
}

// GetPhase returns the current phase.
func (c *Context) GetPhase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}
