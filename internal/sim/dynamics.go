package sim

import (
	"math"

	"github.com/OCAP2/racesim/internal/physics"
	"github.com/OCAP2/racesim/pkg/core"
)

// moveCar advances one car by one timestep. Out-of-race handling and the pit
// lane run first and may take the controls away from the driver.
func (c *Context) moveCar(car *Car) {
	if car.Out == Retired || car.Out == DidNotQualify {
		return
	}
	t := c.Track
	dt := c.Opts.DeltaTime

	v := car.Speed()
	car.SpeedMax = max(car.SpeedMax, v)
	mass := physics.Mass(car.Fuel)

	if car.Vc < 0 && v > core.ReverseGearLimit {
		car.Vc = 0 // no reverse gear at speed, brake instead
	}

	qualified := c.Stage == core.StageQualifying && car.Laps >= c.Opts.QualifyingLaps
	if car.over() || qualified {
		if car.Offroad {
			c.park(car, v)
			return
		}
		// leave the racing line toward the right edge
		if v > 36 {
			car.Alpha = .2*(core.CarWidth-car.ToRight)/t.Width - ratio(car.Vn, v)
			car.Vc = v - 2
		} else {
			car.Alpha = .8*(-3*core.CarWidth-car.ToRight)/t.Width - ratio(car.Vn, v)
			car.Vc = 35
		}
	}

	c.pitLane(car, v)
	if car.Out != Running {
		return
	}

	sin, cos := math.Sincos(car.Alpha)
	penalized := car.Offroad && !car.InPitManeuver()

	drag := physics.Drag(v, car.Damage, c.airResistance(car))
	if penalized {
		drag += physics.OffroadDrag(v, mass, car.VeryOffroad)
	}

	m := c.Opts.Model
	tr := m.Traction(car.Vc, sin, cos, v, mass)
	p := math.Abs(car.Vc) * (tr.Ft*cos + tr.Fn*sin)
	car.PowerReq = p / core.MaxPower
	if p > core.MaxPower {
		car.Vc = m.LimitSpeed(sin, cos, v, car.Vc, mass)
		tr = m.Traction(car.Vc, sin, cos, v, mass)
		p = math.Abs(car.Vc) * (tr.Ft*cos + tr.Fn*sin)
	}
	car.Power = p / core.MaxPower

	scale := 1.0
	if tr.Ft != 0 && c.Opts.RandomMotion {
		scale = physics.RandomFriction(m.Surface, tr.Slip, c.Rand.Core.Float()) * mass * core.Gravity / tr.F
	}
	car.CenA = tr.Fn * scale / mass
	car.TanA = (tr.Ft*scale - drag) / mass

	if p > 0 {
		car.Fuel -= p * core.SpecificFuelConsumption * dt
	}
	if penalized && c.Stage != core.StagePractice {
		car.addDamage(int((car.TanA*car.TanA + car.CenA*car.CenA) / 50))
	}

	car.Step(car.TanA, car.CenA, dt)
	if v >= .0001 {
		car.Ang = math.Atan2(car.YDot, car.XDot)
	}
}

// park takes a car that is out of the race off the edge of the track and
// stops it there. It is safe to call repeatedly.
func (c *Context) park(car *Car, v float64) {
	d := 1.0
	if v > .001 {
		d = .8 * core.CarLength / v
	}
	car.X += d * car.XDot
	car.Y += d * car.YDot
	car.XDot, car.YDot = 0, 0
	car.PreXDot, car.PreYDot = 0, 0
	car.PreXA, car.PreYA = 0, 0

	// an average speed only counts over the full distance
	if c.Stage == core.StageQualifying && car.Laps < c.Opts.QualifyingLaps &&
		c.Opts.QualifyingMode == core.QualifyAvgSpeed {
		car.QualAvgSpeed = 0
	}

	if car.Out != Running {
		return
	}
	car.Out = Retired
	c.OutCount++
	c.Listener.Retired(car, retireReason(car, c.Stage))
}

func retireReason(car *Car, stage core.Stage) string {
	switch {
	case car.Damage >= core.MaxDamage:
		return "damage"
	case car.Fuel <= 0:
		return "fuel"
	case stage == core.StageQualifying:
		return "qualifying complete"
	default:
		return "off track"
	}
}

// pitLane steers a car through its pit stop once the pit request has been
// accepted, and back onto the track afterwards.
func (c *Context) pitLane(car *Car, v float64) {
	t := c.Track
	half := t.Length / 2
	side := float64(t.Pit.Side)

	// distances are measured from half a lap past the line so that the lane
	// does not wrap across the finish
	laneStart := t.Pit.LaneStart
	if laneStart < half {
		laneStart += t.Length
	}
	box := laneStart + (t.Length+t.Pit.LaneEnd-laneStart)*float64(car.Started)/float64(len(c.Cars)) - half
	if box < 0 {
		box += t.Length
	}
	pdist := car.Distance - half
	if pdist < 0 {
		pdist += t.Length
	}

	target := car.ToRight
	if t.Pit.Side < 0 {
		target = t.Width - car.ToRight
	}

	if car.GoPits {
		if pdist < box {
			if v > t.Pit.Speed+1 {
				car.Vc = v * .8
			} else {
				car.Vc = t.Pit.Speed
			}
			if v > t.Pit.Speed {
				car.Alpha = .004*side*(.5*core.CarWidth-target) - ratio(car.Vn, v)
			} else {
				car.Alpha = .008*side*(-3*core.CarWidth-target) - ratio(car.Vn, v)
				if target < -core.CarWidth {
					car.OnPitLane = true
				}
			}
		} else {
			car.Vc = 0
			if v < 15 {
				c.serviceStop(car)
			}
		}
	}

	if !car.OutPits {
		return
	}
	exit := t.Pit.Exit + half
	switch {
	case pdist <= exit:
		car.Alpha = .005*side*(-3*core.CarWidth-target) - ratio(car.Vn, v)
		if v < t.Pit.Speed {
			car.Vc = v + 5
		} else {
			car.Vc = t.Pit.Speed
		}
		warn := min(t.Pit.Exit-t.Pit.LaneEnd, 200)
		if pdist > exit-warn {
			car.ComingFromPits = true
		}
	case pdist < exit+200:
		car.OnPitLane = false
		car.Alpha = .01*side*(.6*core.CarWidth-target) - ratio(car.Vn, v)
		car.Vc = v + .2
	default:
		car.OutPits = false
		car.sit.OutPits = false
		car.ComingFromPits = false
	}
}

// serviceStop runs the stationary part of a pit stop: repair and refuel,
// then release.
func (c *Context) serviceStop(car *Car) {
	car.Out = InPit
	if !car.Pitting {
		car.Pitting = true
		d := max(.005*float64(car.RepairAmount), .05*car.FuelAmount)
		car.fullLoad = car.Fuel + car.FuelAmount
		car.pitDoneTime = c.Elapsed + d
		car.TotalPitTime += d
		return
	}
	if car.pitDoneTime < c.Elapsed {
		car.Pitting = false
		car.GoPits = false
		car.OutPits = true
		car.sit.OutPits = true
		car.Out = Running
		car.Damage = max(car.Damage-car.RepairAmount, 0)
	}
	if car.Fuel < car.fullLoad-1 {
		car.Fuel = min(car.Fuel+c.Opts.DeltaTime/.05, core.MaxFuel)
	}
}

// airResistance is the share of full drag left after slipstreaming behind
// the cars directly ahead: 1 in clean air.
func (c *Context) airResistance(car *Car) float64 {
	res := 1.0
	for _, o := range c.Cars {
		if o == car || o.Out != Running || !c.onTrack(o) {
			continue
		}
		gap := o.Distance - car.Distance
		reach := o.sit.V
		if gap < core.CarLength || gap > reach {
			continue
		}
		offset := math.Abs(car.ToRight - o.ToRight)
		if offset > core.CarWidth {
			continue
		}
		res *= 1 - (1-gap/reach)*(1-offset/core.CarWidth)
	}
	return res
}
