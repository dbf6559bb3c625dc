package sim

import (
	"math"

	"github.com/OCAP2/racesim/pkg/core"
)

// checkNearby fills Situation.Nearby with the closest cars ahead, nearest
// first, in a frame whose y axis is the car's velocity. Empty slots carry
// core.NoCar.
func (c *Context) checkNearby(car *Car) {
	s := &car.sit
	for k := range s.Nearby {
		s.Nearby[k] = core.NearbyCar{Who: core.NoCar}
	}
	if car.Out != Running || s.Backward {
		return
	}
	t := c.Track

	var (
		closest  [core.NearbyCars]int
		howClose [core.NearbyCars]float64
	)
	for k := range closest {
		closest[k] = core.NoCar
		howClose[k] = 1e5
	}

	// look as far ahead as it takes to brake
	maxDist := .5*s.V*s.V/core.Gravity + 100

	sin, cos := -1.0, 0.0
	if s.V > 1e-7 {
		sin = -car.XDot / s.V
		cos = car.YDot / s.V
	}

	for _, o := range c.Cars {
		if o == car || o.Out != Running || !c.onTrack(o) {
			continue
		}
		if o.OnPitLane && !car.ComingFromPits {
			continue
		}

		ahead := o.Distance - car.Distance
		if car.SegID == 0 && o.SegID == t.NSEG()-1 {
			ahead -= t.Length
		}
		if ahead < -core.CarLength {
			ahead += t.Length
		}
		if ahead > maxDist || ahead < -core.CarLength {
			continue
		}

		dx, dy := o.X-car.X, o.Y-car.Y
		if along := cos*dy - sin*dx; along < 0 {
			if !c.Opts.SideVision || !s.SideVision || along < -core.CarLength {
				continue
			}
		}

		sep := math.Hypot(dx, dy)
		for k := range closest {
			if sep < howClose[k] {
				copy(closest[k+1:], closest[k:len(closest)-1])
				copy(howClose[k+1:], howClose[k:len(howClose)-1])
				closest[k] = o.ID
				howClose[k] = sep
				break
			}
		}
	}

	for k, id := range closest {
		if id == core.NoCar {
			break
		}
		o := c.Cars[id]
		dx, dy := o.X-car.X, o.Y-car.Y
		dxdot, dydot := o.XDot-car.XDot, o.YDot-car.YDot
		s.Nearby[k] = core.NearbyCar{
			RelX:           cos*dx + sin*dy,
			RelY:           cos*dy - sin*dx,
			RelXDot:        cos*dxdot + sin*dydot,
			RelYDot:        cos*dydot - sin*dxdot,
			Alpha:          o.Alpha,
			ToLeft:         o.sit.ToLeft,
			ToRight:        o.sit.ToRight,
			V:              o.sit.V,
			Vn:             o.sit.Vn,
			Dist:           howClose[k],
			Who:            id,
			Braking:        o.TanA < -5,
			ForPosition:    car.Laps <= o.Laps,
			ComingFromPits: o.ComingFromPits,
		}
	}
}
