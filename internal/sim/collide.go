package sim

import (
	"math"

	"github.com/OCAP2/racesim/internal/collision"
	"github.com/OCAP2/racesim/internal/physics"
	"github.com/OCAP2/racesim/pkg/core"
)

// checkCollisions resolves contact between car and every other car on the
// same or the next segment, and sets the dead-ahead flag. Each pair is
// handled by the faster car.
func (c *Context) checkCollisions(car *Car) {
	car.DeadAhead = false
	if car.Out != Running {
		return
	}
	t := c.Track

	// pointing vector: velocity rotated by alpha
	sin, cos := math.Sincos(car.Alpha)
	px := car.XDot*cos - car.YDot*sin
	py := car.XDot*sin + car.YDot*cos
	v := car.Speed()
	brakeMu := physics.SurfaceHard.MaxFriction()

	for _, o := range c.Cars {
		if o == car || o.Out != Running || !c.onTrack(o) {
			continue
		}
		if o.SegID != car.SegID && o.SegID != t.Next(car.SegID) {
			continue
		}
		dx, dy := o.X-car.X, o.Y-car.Y
		sep := math.Hypot(dx, dy)

		// within braking distance and about 20 degrees of the pointing vector
		if !car.sit.Backward {
			brake := (v - o.Vn - 20) * (v + o.Vn - 20) / (brakeMu * core.Gravity * 2)
			if sep <= brake && px*dx+py*dy > .94*sep*v {
				car.DeadAhead = true
			}
		}

		if !collision.BroadPhase(dx, dy) {
			continue
		}
		if car.XDot*car.XDot+car.YDot*car.YDot < o.XDot*o.XDot+o.YDot*o.YDot {
			continue
		}

		a, b := car.body(), o.body()
		res, ok := collision.Resolve(&a, &b)
		if !ok {
			continue
		}
		car.setBody(a)
		o.setBody(b)
		v = car.Speed()

		var dmg, otherDmg int
		if res.Damage > 0 && !car.InPitManeuver() && !o.InPitManeuver() && c.Stage != core.StagePractice {
			dmg = int(.5 * res.Damage)
			otherDmg = int(.25 * res.Damage)
			car.addDamage(dmg)
			o.addDamage(otherDmg)
			car.CollisionFlash = core.CollisionFlash
			o.CollisionFlash = core.CollisionFlash
		}
		c.Listener.Collided(car, o, dmg, otherDmg, res.Overlap)
	}
}
