package physics

import (
	"math"

	"github.com/OCAP2/racesim/pkg/core"
)

// SolverTolerance is the bracket width at which the power solve stops.
const SolverTolerance = .006

// Traction is the tire force resolved against the car's path.
type Traction struct {
	Slip float64 // slip speed
	F    float64 // friction force magnitude
	Fn   float64 // normal to path
	Ft   float64 // along path
}

// Model evaluates traction and power for one surface.
type Model struct {
	Surface     Surface
	PowerTarget float64 // fraction of core.MaxPower the solver aims for
}

// NewModel returns a model with the default power target.
func NewModel(s Surface) Model {
	return Model{Surface: s, PowerTarget: core.DefaultPowerTarget}
}

// Traction computes the force on a car moving at speed v whose wheels are
// commanded to vc at angle of attack alpha (given as sin and cos).
func (m Model) Traction(vc, sin, cos, v, mass float64) Traction {
	ln := -vc * sin
	lt := v - vc*cos
	l := math.Hypot(lt, ln)
	t := Traction{Slip: l, F: mass * core.Gravity * Friction(m.Surface, l)}
	if l < .0001 {
		return t
	}
	t.Fn = -t.F * ln / l
	t.Ft = -t.F * lt / l
	return t
}

// Power is the power delivered to the tires.
func (m Model) Power(vc, sin, cos, v, mass float64) float64 {
	t := m.Traction(vc, sin, cos, v, mass)
	return math.Abs(vc) * (t.Ft*cos + t.Fn*sin)
}

// PowerExcess is delivered power minus the target share of maximum power.
func (m Model) PowerExcess(vc, sin, cos, v, mass float64) float64 {
	return m.Power(vc, sin, cos, v, mass) - m.target()*core.MaxPower
}

// LimitSpeed finds the wheel speed in [v*cos, vc] that delivers the target
// power. When the bracket holds no sign change vc is returned unchanged.
func (m Model) LimitSpeed(sin, cos, v, vc, mass float64) float64 {
	return Brent(func(x float64) float64 {
		return m.PowerExcess(x, sin, cos, v, mass)
	}, v*cos, vc, SolverTolerance)
}

func (m Model) target() float64 {
	if m.PowerTarget <= 0 || m.PowerTarget > 1 {
		return core.DefaultPowerTarget
	}
	return m.PowerTarget
}
