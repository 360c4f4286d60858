package round

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextLifecycle(t *testing.T) {
	c := NewContext()
	assert.Equal(t, PhaseWaiting, c.GetPhase())
	assert.Zero(t, c.ID())

	c.Begin(1, 987654321)
	assert.Equal(t, PhaseFlying, c.GetPhase())
	assert.EqualValues(t, 1, c.ID())
	assert.Equal(t, "987654321", c.SeedString())

	c.SetPhase(PhaseDown)
	assert.Equal(t, PhaseDown, c.GetPhase())
}
