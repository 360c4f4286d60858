package lander

import "math"

// PID gains for the rate-of-descent loop. Tuned against the default craft
// mass and main-engine thrust.
const (
	pidKp = 0.8
	pidKi = 0.05
	pidKd = 0.3
)

// Throttle is cut when the craft tilts far enough that the vertical thrust
// component vanishes.
const cosTiltEpsilon = 1e-6

// pid is a textbook PID loop. The integral term is left unclamped: the
// throttle output is clamped instead, and a saturated descent ends the
// round long before windup matters.
type pid struct {
	kp, ki, kd float64
	integral   float64
	prevError  float64
}

func (p *pid) update(err, dt float64) float64 {
	p.integral += err * dt
	derivative := (err - p.prevError) / dt
	p.prevError = err
	return p.kp*err + p.ki*p.integral + p.kd*derivative
}

func (p *pid) reset() {
	p.integral = 0
	p.prevError = 0
}

// RoDController holds the pilot's rate-of-descent target and translates it
// into a main-engine throttle each tick.
type RoDController struct {
	target float64
	loop   pid
}

// NewRoDController creates a controller tracking the given descent rate,
// negative meaning downward.
func NewRoDController(target float64) *RoDController {
	return &RoDController{
		target: target,
		loop:   pid{kp: pidKp, ki: pidKi, kd: pidKd},
	}
}

// Target returns the current descent-rate target, m/s.
func (r *RoDController) Target() float64 {
	return r.target
}

// AdjustTarget moves the target by delta. Positive delta slows the descent.
func (r *RoDController) AdjustTarget(delta float64) {
	r.target += delta
}

// SetTarget replaces the target outright, used at round reset.
func (r *RoDController) SetTarget(target float64) {
	r.target = target
	r.loop.reset()
}

// Throttle computes the main-engine throttle needed to steer the vertical
// velocity toward the target. tilt is the angle between the thrust axis and
// vertical; past 90 degrees the engine cannot arrest descent at all and the
// throttle is cut.
func (r *RoDController) Throttle(mass, tilt, verticalVelocity, dt float64) float64 {
	cosTilt := math.Cos(tilt)
	if cosTilt < cosTiltEpsilon {
		return 0
	}

	err := r.target - verticalVelocity
	accel := r.loop.update(err, dt)

	throttle := mass * (MoonGravity + accel) / (MainEngineThrust * cosTilt)
	return math.Min(1, math.Max(0, throttle))
}
