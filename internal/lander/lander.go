package lander

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/moonward/lander/internal/input"
)

// Craft and environment constants, SI units. The craft is modelled on an
// Apollo-class descent stage: a solid cylinder 4.2 m across and 7 m tall.
const (
	// DryMass is the structural mass of the descent stage, kg.
	DryMass = 2150.0
	// PayloadMass rides on top of the stage, kg.
	PayloadMass = 4550.0
	// InitialFuelMass is the full propellant load, kg.
	InitialFuelMass = 600.0

	// MainEngineThrust is the maximum thrust of the descent engine, N.
	MainEngineThrust = 45000.0
	// FuelBurnRate is propellant consumption at full throttle, kg/s.
	FuelBurnRate = 15.0

	// RCSThrust is the lateral force of the reaction control system, N.
	RCSThrust = 880.0
	// RCSTorque is the rotational authority of the RCS, N·m.
	RCSTorque = 3700.0

	// MoonGravity is lunar surface gravity along -Z, m/s².
	MoonGravity = -1.62

	// Angular velocity decay factor applied each tick.
	angularDamping = 0.999

	bodyRadius = 2.1
	bodyHeight = 7.0
)

// Lander is the rigid-body state of the craft. It is owned by the
// simulation loop and is not safe for concurrent use; the loop publishes
// snapshots for everyone else.
type Lander struct {
	position        mgl64.Vec3
	velocity        mgl64.Vec3
	orientation     mgl64.Quat
	angularVelocity mgl64.Vec3
	fuelMass        float64
	throttle        float64
	rod             *RoDController
	stopped         bool
}

// New spawns a craft at rest at position with a full fuel load, holding the
// given rate-of-descent target. initialVerticalVelocity seeds the descent.
func New(position mgl64.Vec3, initialVerticalVelocity, rodTarget float64) *Lander {
	return &Lander{
		position:    position,
		velocity:    mgl64.Vec3{0, 0, initialVerticalVelocity},
		orientation: mgl64.QuatIdent(),
		fuelMass:    InitialFuelMass,
		rod:         NewRoDController(rodTarget),
	}
}

// Mass is the current total mass including remaining fuel, kg.
func (l *Lander) Mass() float64 {
	return DryMass + PayloadMass + l.fuelMass
}

// inertia returns the principal moments of a solid cylinder at the current
// mass.
func (l *Lander) inertia() mgl64.Vec3 {
	lateral := (3*bodyRadius*bodyRadius + bodyHeight*bodyHeight) / 12
	axial := bodyRadius * bodyRadius / 2
	return mgl64.Vec3{lateral, lateral, axial}.Mul(l.Mass())
}

// Step advances the craft by dt seconds under the given pilot commands.
// Once stopped, the craft is frozen and Step is a no-op.
func (l *Lander) Step(dt float64, frame input.Frame) {
	if l.stopped || dt <= 0 {
		return
	}
	frame = sanitize(frame)

	l.rod.AdjustTarget(frame.RoDDelta)

	mass := l.Mass()
	accel := mgl64.Vec3{}

	// Main engine along the body Z axis.
	l.throttle = 0
	if l.fuelMass > 0 {
		l.throttle = l.rod.Throttle(mass, l.Tilt(), l.velocity.Z(), dt)
	}
	if l.throttle > 0 {
		up := l.orientation.Rotate(mgl64.Vec3{0, 0, 1})
		accel = accel.Add(up.Mul(l.throttle * MainEngineThrust / mass))
	}

	// RCS translation in the body frame.
	if frame.Strafe.Len() > 0 {
		lateral := l.orientation.Rotate(frame.Strafe).Mul(RCSThrust / mass)
		accel = accel.Add(lateral)
	}

	accel = accel.Add(mgl64.Vec3{0, 0, MoonGravity})

	// RCS rotation, componentwise over the principal moments.
	inertia := l.inertia()
	l.angularVelocity = l.angularVelocity.Add(mgl64.Vec3{
		frame.Rotate.X() * RCSTorque / inertia.X() * dt,
		frame.Rotate.Y() * RCSTorque / inertia.Y() * dt,
		frame.Rotate.Z() * RCSTorque / inertia.Z() * dt,
	})
	l.angularVelocity = l.angularVelocity.Mul(angularDamping)

	l.velocity = l.velocity.Add(accel.Mul(dt))
	l.position = l.position.Add(l.velocity.Mul(dt))

	spin := mgl64.AnglesToQuat(
		l.angularVelocity.X()*dt,
		l.angularVelocity.Y()*dt,
		l.angularVelocity.Z()*dt,
		mgl64.XYZ,
	)
	l.orientation = l.orientation.Mul(spin).Normalize()

	l.fuelMass = math.Max(0, l.fuelMass-FuelBurnRate*l.throttle*dt)
}

// Stop freezes the craft in place after ground contact.
func (l *Lander) Stop() {
	l.stopped = true
	l.velocity = mgl64.Vec3{}
	l.angularVelocity = mgl64.Vec3{}
	l.throttle = 0
}

// Stopped reports whether the craft has been frozen.
func (l *Lander) Stopped() bool {
	return l.stopped
}

// HasLanded reports whether the craft has reached the surface elevation
// beneath it.
func (l *Lander) HasLanded(surfaceZ float64) bool {
	return l.position.Z() <= surfaceZ
}

func (l *Lander) Position() mgl64.Vec3        { return l.position }
func (l *Lander) Velocity() mgl64.Vec3        { return l.velocity }
func (l *Lander) Orientation() mgl64.Quat     { return l.orientation }
func (l *Lander) AngularVelocity() mgl64.Vec3 { return l.angularVelocity }
func (l *Lander) FuelMass() float64           { return l.fuelMass }
func (l *Lander) Throttle() float64           { return l.throttle }
func (l *Lander) TargetRoD() float64          { return l.rod.Target() }

// VerticalSpeed is the downward speed magnitude, m/s.
func (l *Lander) VerticalSpeed() float64 {
	return math.Abs(l.velocity.Z())
}

// HorizontalSpeed is the ground-plane speed, m/s.
func (l *Lander) HorizontalSpeed() float64 {
	return math.Hypot(l.velocity.X(), l.velocity.Y())
}

// Tilt is the angle in radians between the craft's thrust axis and
// vertical.
func (l *Lander) Tilt() float64 {
	up := l.orientation.Rotate(mgl64.Vec3{0, 0, 1})
	dot := math.Min(1, math.Max(-1, up.Z()))
	return math.Acos(dot)
}

// AngularSpeed is the magnitude of the angular velocity, rad/s.
func (l *Lander) AngularSpeed() float64 {
	return l.angularVelocity.Len()
}

// DistanceFromZone is the ground-plane distance to the landing zone center.
func (l *Lander) DistanceFromZone(zoneCenter mgl64.Vec3) float64 {
	return math.Hypot(l.position.X()-zoneCenter.X(), l.position.Y()-zoneCenter.Y())
}

// sanitize zeroes non-finite command components so a corrupt sample cannot
// poison the physics state.
func sanitize(frame input.Frame) input.Frame {
	for i := 0; i < 3; i++ {
		if !isFinite(frame.Strafe[i]) {
			frame.Strafe[i] = 0
		}
		if !isFinite(frame.Rotate[i]) {
			frame.Rotate[i] = 0
		}
	}
	if !isFinite(frame.RoDDelta) {
		frame.RoDDelta = 0
	}
	return frame
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
