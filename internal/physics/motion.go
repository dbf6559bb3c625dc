package physics

import (
	"math"

	"github.com/OCAP2/racesim/pkg/core"
)

const (
	// MaxAlphaRate is the fastest the angle of attack may change, rad/s.
	MaxAlphaRate = 3.2
	// MaxAlpha bounds the angle of attack, rad.
	MaxAlpha = 1.0
)

// AlphaLimit applies the steering rate and range limits to a requested alpha.
func AlphaLimit(was, request, dt float64) float64 {
	step := MaxAlphaRate * dt
	alpha := request
	switch {
	case request-was > step:
		alpha = was + step
	case was-request > step:
		alpha = was - step
	}
	return math.Max(-MaxAlpha, math.Min(MaxAlpha, alpha))
}

// Drag is air resistance at speed v, increased by damage and reduced by
// the slipstream factor airRes in (0, 1].
func Drag(v float64, damage int, airRes float64) float64 {
	return core.DragCoefficient * v * v * float64(2*damage+core.MaxDamage) / core.MaxDamage * airRes
}

// OffroadDrag is the rolling resistance added when a car leaves the track.
func OffroadDrag(v, mass float64, veryOffroad bool) float64 {
	d := (.6 + .008*v) * mass * core.Gravity
	if veryOffroad {
		d += 1.7 * mass * core.Gravity
	}
	return d
}

// Mass is the car's mass including fuel.
func Mass(fuel float64) float64 {
	return core.CarMass + fuel/core.Gravity
}

// Kinematics is the integrator state of one car.
type Kinematics struct {
	X, Y       float64
	XDot, YDot float64
	PreXDot    float64
	PreYDot    float64
	PreXA      float64
	PreYA      float64
}

// Speed is the magnitude of the velocity.
func (k *Kinematics) Speed() float64 { return math.Hypot(k.XDot, k.YDot) }

// Step advances the state by dt from tangential and centripetal acceleration
// using the two-step Adams-Bashforth predictor on both position and velocity.
func (k *Kinematics) Step(tanA, cenA, dt float64) {
	v := k.Speed()
	var sin, cos float64
	if v >= .0001 {
		sin, cos = k.YDot/v, k.XDot/v
	}
	xa := tanA*cos - cenA*sin
	ya := cenA*cos + tanA*sin

	k.X += (1.5*k.XDot - .5*k.PreXDot) * dt
	k.Y += (1.5*k.YDot - .5*k.PreYDot) * dt
	k.PreXDot, k.PreYDot = k.XDot, k.YDot
	k.XDot += (1.5*xa - .5*k.PreXA) * dt
	k.YDot += (1.5*ya - .5*k.PreYA) * dt
	k.PreXA, k.PreYA = xa, ya
}

// Reset places the state at rest-free motion with speed v along heading ang.
func (k *Kinematics) Reset(x, y, ang, v float64) {
	*k = Kinematics{X: x, Y: y, XDot: v * math.Cos(ang), YDot: v * math.Sin(ang)}
}
