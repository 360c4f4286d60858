package input

import (
	"fmt"

	"github.com/moonward/lander/pkg/wire"
)

// Mapping binds named controls to indices into a joystick sample's flat
// axes and buttons arrays. Indices come from configuration so that any
// controller layout can be plugged in.
type Mapping struct {
	AxisStrafeX    int
	AxisStrafeY    int
	AxisRoll       int
	AxisPitch      int
	ButtonYawLeft  int
	ButtonYawRight int
	ButtonRodUp    int
	ButtonRodDown  int
	ButtonStart    int
}

// Gamepad reads named controls out of raw joystick samples, applying the
// dead zone to axes and thresholding buttons.
type Gamepad struct {
	mapping  Mapping
	deadZone float64
}

// NewGamepad creates a reader for the given layout. deadZone is the
// magnitude below which an axis reads as zero.
func NewGamepad(mapping Mapping, deadZone float64) *Gamepad {
	return &Gamepad{mapping: mapping, deadZone: deadZone}
}

// Validate rejects samples whose arrays do not cover every mapped index.
// Samples from a controller with too few axes or buttons are dropped rather
// than partially applied.
func (g *Gamepad) Validate(msg wire.JoyPayload) error {
	maxAxis := max(g.mapping.AxisStrafeX, g.mapping.AxisStrafeY, g.mapping.AxisRoll, g.mapping.AxisPitch)
	if len(msg.Axes) <= maxAxis {
		return fmt.Errorf("joystick sample has %d axes, mapping needs %d", len(msg.Axes), maxAxis+1)
	}
	maxButton := max(g.mapping.ButtonYawLeft, g.mapping.ButtonYawRight,
		g.mapping.ButtonRodUp, g.mapping.ButtonRodDown, g.mapping.ButtonStart)
	if len(msg.Buttons) <= maxButton {
		return fmt.Errorf("joystick sample has %d buttons, mapping needs %d", len(msg.Buttons), maxButton+1)
	}
	return nil
}

func (g *Gamepad) axis(msg wire.JoyPayload, idx int) float64 {
	raw := msg.Axes[idx]
	if raw < -1 {
		raw = -1
	} else if raw > 1 {
		raw = 1
	}
	if raw > -g.deadZone && raw < g.deadZone {
		return 0
	}
	return raw
}

func (g *Gamepad) button(msg wire.JoyPayload, idx int) bool {
	return msg.Buttons[idx] > 0
}

// StrafeX reads the lateral translation axis.
func (g *Gamepad) StrafeX(msg wire.JoyPayload) float64 {
	return g.axis(msg, g.mapping.AxisStrafeX)
}

// StrafeY reads the longitudinal translation axis.
func (g *Gamepad) StrafeY(msg wire.JoyPayload) float64 {
	return g.axis(msg, g.mapping.AxisStrafeY)
}

// Roll reads the roll axis. The sign is flipped so that pushing right rolls
// the craft right.
func (g *Gamepad) Roll(msg wire.JoyPayload) float64 {
	return -g.axis(msg, g.mapping.AxisRoll)
}

// Pitch reads the pitch axis. The sign is flipped so that pushing forward
// pitches the craft forward.
func (g *Gamepad) Pitch(msg wire.JoyPayload) float64 {
	return -g.axis(msg, g.mapping.AxisPitch)
}

func (g *Gamepad) YawLeft(msg wire.JoyPayload) bool {
	return g.button(msg, g.mapping.ButtonYawLeft)
}

func (g *Gamepad) YawRight(msg wire.JoyPayload) bool {
	return g.button(msg, g.mapping.ButtonYawRight)
}

func (g *Gamepad) RodUp(msg wire.JoyPayload) bool {
	return g.button(msg, g.mapping.ButtonRodUp)
}

func (g *Gamepad) RodDown(msg wire.JoyPayload) bool {
	return g.button(msg, g.mapping.ButtonRodDown)
}

func (g *Gamepad) Start(msg wire.JoyPayload) bool {
	return g.button(msg, g.mapping.ButtonStart)
}
