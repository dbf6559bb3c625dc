package driver

import (
	"math"

	"github.com/OCAP2/racesim/pkg/core"
)

const cornerFactor = 30.0

// Gruppe12 holds a line 50 feet from the left wall and picks its speed from
// the radius of the current or the next curve.
type Gruppe12 struct{}

func (Gruppe12) Name() string { return "Gruppe12" }

func (Gruppe12) Drive(s *core.Situation) core.ControlCommand {
	var damp float64
	if s.V > 0 {
		damp = 1.2 * s.Vn / s.V
	}
	return core.ControlCommand{
		Alpha: (s.ToLeft-50)/(s.ToLeft+s.ToRight) - damp,
		Vc:    targetSpeed(s),
	}
}

// targetSpeed is flat out except over the last 30% of a segment, where it
// slows for the curve coming up. Inside a curve it holds the curve's speed.
func targetSpeed(s *core.Situation) float64 {
	late := s.ToEnd < .3*s.CurLen
	switch {
	case s.CurRad == 0:
		if late && s.NexRad != 0 {
			return math.Sqrt(math.Abs(s.NexRad) * cornerFactor)
		}
	case late && s.NexRad == 0:
	case late:
		return math.Sqrt(math.Abs(s.NexRad) * cornerFactor)
	default:
		return math.Sqrt(math.Abs(s.CurRad) * cornerFactor)
	}
	return 1000
}
