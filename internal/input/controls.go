package input

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/moonward/lander/pkg/wire"
)

// Rate-of-descent adjustment per discrete button tap, m/s.
const rodStepPerTap = 0.5

// Yaw command magnitude while a yaw button is held. The yaw pair acts as a
// virtual axis clamped to half deflection.
const yawButtonValue = 0.5

// Frame is one tick's worth of conditioned pilot input. Strafe and Rotate
// are normalized command vectors; RoDDelta is the accumulated change to the
// descent-rate target since the previous tick.
type Frame struct {
	Strafe   mgl64.Vec3
	Rotate   mgl64.Vec3
	RoDDelta float64
}

// Controls conditions raw joystick samples into per-tick command frames.
// Samples arrive from the session reader at the device's own rate; the
// simulation drains one Frame per tick. All methods are safe for concurrent
// use.
type Controls struct {
	mu  sync.Mutex
	pad *Gamepad

	strafeX, strafeY float64
	pitch, roll      float64
	yawLeft          bool
	yawRight         bool

	rodUp   Button
	rodDown Button
	start   Button

	resetRequested bool
}

// NewControls creates a conditioner reading through the given gamepad
// layout.
func NewControls(pad *Gamepad) *Controls {
	return &Controls{
		pad:     pad,
		rodUp:   NewRepeatButton(DefaultRepeatInterval),
		rodDown: NewRepeatButton(DefaultRepeatInterval),
		start:   NewButton(),
	}
}

// Apply folds one raw joystick sample into the current state. Samples that
// do not cover the configured mapping are rejected whole.
func (c *Controls) Apply(now time.Time, msg wire.JoyPayload) error {
	if err := c.pad.Validate(msg); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.strafeX = c.pad.StrafeX(msg)
	c.strafeY = c.pad.StrafeY(msg)
	c.pitch = c.pad.Pitch(msg)
	c.roll = c.pad.Roll(msg)
	c.yawLeft = c.pad.YawLeft(msg)
	c.yawRight = c.pad.YawRight(msg)

	c.rodUp.Observe(now, c.pad.RodUp(msg))
	c.rodDown.Observe(now, c.pad.RodDown(msg))
	if c.start.Observe(now, c.pad.Start(msg)) {
		c.resetRequested = true
	}
	return nil
}

// Take returns the command frame for this tick and drains the tap counters.
// Axis values persist between samples; counters reset to zero.
func (c *Controls) Take() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	yaw := 0.0
	if c.yawLeft && !c.yawRight {
		yaw = yawButtonValue
	} else if c.yawRight && !c.yawLeft {
		yaw = -yawButtonValue
	}

	taps := c.rodUp.TakeCount() - c.rodDown.TakeCount()

	return Frame{
		Strafe:   mgl64.Vec3{c.strafeX, c.strafeY, 0},
		Rotate:   mgl64.Vec3{c.pitch, c.roll, yaw},
		RoDDelta: float64(taps) * rodStepPerTap,
	}
}

// RequestReset latches a reset as if the start button had been pressed.
// Used by the remote reset command.
func (c *Controls) RequestReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetRequested = true
}

// ResetRequested reports whether the start button was pressed since the
// last SoftReset.
func (c *Controls) ResetRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetRequested
}

// SoftReset clears accumulated commands at a round boundary. Debounce state
// is kept so a button still held across the reset does not fire again.
func (c *Controls) SoftReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetRequested = false
	c.rodUp.TakeCount()
	c.rodDown.TakeCount()
}

// HardReset discards everything, debounce state included. Called when the
// input device changes, so stale held-button state cannot leak into the new
// device's samples.
func (c *Controls) HardReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strafeX, c.strafeY, c.pitch, c.roll = 0, 0, 0, 0
	c.yawLeft, c.yawRight = false, false
	c.rodUp.Reset()
	c.rodDown.Reset()
	c.start.Reset()
	c.resetRequested = false
}
