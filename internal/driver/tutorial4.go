package driver

import (
	"math"

	"github.com/OCAP2/racesim/pkg/core"
)

const (
	cornerMu       = 1.0   // lateral g expected when cornering
	brakeAccel     = -33.0 // on a straight
	brakeSlip      = 6.5
	brakeCurveAcc  = -27.0
	brakeCurveSlip = 3.5
	margin         = 10.0 // from the inner rail in a curve
	entryMargin    = margin + 10
	entrySlope     = .33
	steerGain      = 1.0
	dampGain       = 1.2
	bigSlip        = 9.0
	curveEnd       = 4.0 // track widths
	tooFast        = 1.02
	deltaLane      = 2.5
	pitFuel        = 10.0
)

// Tutorial4 drives the inside line of every curve at the speed the corner
// allows, brakes for the next one just in time and changes lane to pass cars
// it is closing on. It pits when fuel runs low.
type Tutorial4 struct {
	lane    float64 // target distance from the left wall
	lane0   float64 // lane held on the early part of a straight
	radWas  int     // 1, -1 or 0 for the previous segment's direction
	laneInc float64 // passing offset
}

func (*Tutorial4) Name() string { return "Tutorial4" }

// cornerSpeed is the highest speed a curve of radius r can be taken at.
func cornerSpeed(r float64) float64 {
	return math.Sqrt(r * core.Gravity * cornerMu)
}

// critDist is the distance needed to change speed from v0 to v1 at
// acceleration a. It is 0 when v1 is not slower.
func critDist(v0, v1, a float64) float64 {
	dv := v1 - v0
	if dv > 0 {
		return 0
	}
	return (v0 + .5*dv) * dv / a
}

func (d *Tutorial4) Drive(s *core.Situation) core.ControlCommand {
	if alpha, vc, ok := Stuck(s); ok {
		return core.ControlCommand{Alpha: alpha, Vc: vc}
	}
	width := s.ToLeft + s.ToRight

	if s.Starting {
		d.lane, d.lane0 = s.ToLeft, s.ToLeft
	}

	switch {
	case s.CurRad > 0:
		d.lane = margin
		d.radWas = 1
	case s.CurRad < 0:
		d.lane = width - margin
		d.radWas = -1
	default:
		if d.radWas != 0 {
			// just out of a curve: hold the line, a bit right of center
			d.lane = s.ToLeft
			if d.lane < .5*width {
				d.lane += entryMargin
			}
			d.lane0 = d.lane
			d.radWas = 0
		}
		if s.ToEnd < (d.lane0-entryMargin)/entrySlope {
			d.lane = entryMargin + entrySlope*s.ToEnd
		}
	}

	var speed, speedNext, bias float64
	if s.CurRad == 0 {
		speed = 250
		if s.NexRad != 0 {
			speed = cornerSpeed(math.Abs(s.NexRad) + margin)
		}
	} else {
		speedNext = 250
		if s.NexRad != 0 {
			speedNext = cornerSpeed(math.Abs(s.NexRad) + margin)
		}
		speed = cornerSpeed(math.Abs(s.CurRad) + margin + math.Abs(d.laneInc))
		bias = s.V * s.V / (speed * speed) * math.Atan(bigSlip/speed)
		if s.CurRad < 0 {
			bias = -bias
		}
	}

	alpha := steerGain*(s.ToLeft-d.lane)/width - dampGain*s.Vn/s.V + bias

	var vc float64
	if s.CurRad == 0 {
		switch {
		case s.ToEnd > critDist(s.V, speed, brakeAccel):
			vc = s.V + 50
		case s.V > tooFast*speed:
			vc = s.V - brakeSlip
		case s.V < speed/tooFast:
			vc = 1.1 * speed
		default:
			vc = .5 * (s.V + speed)
		}
	} else {
		// feet left in the curve along the chosen line
		toEnd := s.ToEnd * (s.CurRad + margin)
		if s.CurRad < 0 {
			toEnd = -s.ToEnd * (s.CurRad - margin)
		}
		switch {
		case toEnd <= critDist(s.V, speedNext, brakeCurveAcc):
			vc = s.V - brakeCurveSlip
		case toEnd/width < curveEnd && speedNext > speed:
			vc = .5 * (s.V + speedNext) / math.Cos(alpha)
		default:
			vc = .5 * (s.V + speed) / math.Cos(alpha)
		}
	}

	if d.avoid(s, width, &vc) == 0 {
		if d.laneInc > .1 {
			d.laneInc -= .5 * deltaLane
		} else if d.laneInc < -.001 {
			d.laneInc += .5 * deltaLane
		}
	}

	cmd := core.ControlCommand{Vc: vc, Alpha: alpha - steerGain*d.laneInc/width}
	if s.Fuel < pitFuel {
		cmd.RequestPit = true
		cmd.RepairAmount = s.Damage
		cmd.FuelAmount = core.MaxFuel
	}
	return cmd
}

// avoid looks at the three nearest cars and shifts the passing offset away
// from any that a collision is predicted with inside three seconds. It
// returns how many such cars there are, and brakes when that is more than
// one or contact is imminent.
func (d *Tutorial4) avoid(s *core.Situation, width float64, vc *float64) int {
	count := 0
	for _, n := range s.Nearby[:3] {
		if n.Empty() {
			continue
		}
		x, y := n.RelX, n.RelY
		vx, vy := n.RelXDot, n.RelYDot
		dot := x*vx + y*vy
		if dot > -.1 {
			continue // not closing
		}
		t := -dot / (vx*vx + vy*vy)
		if t > 3 {
			continue
		}
		xc, yc := x+t*vx, y+t*vy
		// x changes sign while the cars are still alongside
		if xc*x < 0 && y < 1.1*core.CarLength && vx != 0 {
			t = (math.Abs(x) - core.CarWidth) / math.Abs(vx)
			xc, yc = x+t*vx, y+t*vy
		}
		if math.Abs(xc) > 2*core.CarWidth || math.Abs(yc) > 1.25*core.CarLength {
			continue
		}

		count++
		if count > 1 || t < .85 {
			*vc = s.V - brakeCurveSlip
		}
		switch {
		case s.CurRad > 0:
			if xc < 0 || s.ToLeft < margin {
				d.laneInc += deltaLane
			} else {
				d.laneInc -= deltaLane
			}
		case s.CurRad < 0:
			if xc > 0 || s.ToRight < margin {
				d.laneInc -= deltaLane
			} else {
				d.laneInc += deltaLane
			}
		case xc < 0:
			d.laneInc += deltaLane
		default:
			d.laneInc -= deltaLane
		}
		d.laneInc = max(-.25*width, min(d.laneInc, .25*width))
	}
	return count
}
