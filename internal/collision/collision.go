// Package collision detects and resolves contact between two cars modelled as
// oriented rectangles of core.CarLength by core.CarWidth.
package collision

import (
	"math"

	"github.com/OCAP2/racesim/pkg/core"
)

const (
	// Elasticity scales how quickly restitution decays with closing speed.
	Elasticity = 200.0
	// Friction damps the velocity component across the line of centers.
	Friction = .99
	// MinimumDamage is absorbed without effect.
	MinimumDamage = 10.0
	// DamageMultiplier converts lost closing speed into damage points.
	DamageMultiplier = 100.0
)

// Body is the part of a car's state the resolver reads and writes.
type Body struct {
	X, Y       float64
	XDot, YDot float64
	Heading    float64 // orientation angle plus angle of attack
}

// Result describes a resolved contact.
type Result struct {
	Overlap     float64
	Closing     float64 // impact speed along the line of centers
	Restitution float64
	Damage      float64 // energy absorbed, before the split between the cars
}

// BroadPhase reports whether the bounding circles of two cars intersect.
func BroadPhase(dx, dy float64) bool {
	return dx*dx+dy*dy <= core.CarLength*core.CarLength+core.CarWidth*core.CarWidth
}

type corners struct {
	x, y [4]float64
}

func rectangle() corners {
	const l, w = core.CarLength / 2, core.CarWidth / 2
	return corners{
		x: [4]float64{l, l, -l, -l},
		y: [4]float64{-w, w, w, -w},
	}
}

// rotate turns the corners by angle a plus the angle whose cosine and sine
// are c and s.
func (r *corners) rotate(c, s, a float64) {
	ca, sa := math.Cos(a), math.Sin(a)
	csum := ca*c - sa*s
	ssum := ca*s + sa*c
	for i := range r.x {
		x := r.x[i]*csum - r.y[i]*ssum
		y := r.x[i]*ssum + r.y[i]*csum
		r.x[i], r.y[i] = x, y
	}
}

// penetration is how far any corner of me reaches past an edge of him,
// measured along x. A corner level with an edge's end still counts, so
// rectangles sharing a heading and a lateral offset do not slip through.
func penetration(me, him *corners) float64 {
	var result float64
	for i := 3; i >= 0; i-- {
		for j := 3; j >= 0; j-- {
			k := (j + 1) & 3
			if him.y[j] == him.y[k] || (him.y[j]-me.y[i])*(him.y[k]-me.y[i]) > 0 {
				continue
			}
			x := him.x[j] + (me.y[i]-him.y[j])*(him.x[k]-him.x[j])/(him.y[k]-him.y[j])
			if o := me.x[i] - x; o > result {
				result = o
			}
		}
	}
	return result
}

// impactAxis returns the separation and the unit vector from a to b.
func impactAxis(a, b *Body) (sep, c, s float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	sep = math.Hypot(dx, dy)
	if sep < 1e-9 {
		return 0, 1, 0
	}
	return sep, dx / sep, dy / sep
}

// contactEpsilon absorbs the rounding left over after a pair was separated.
const contactEpsilon = 1e-9

// Overlap is the interpenetration depth of the two rectangles along the line
// joining their centers. Zero means no contact.
func Overlap(a, b Body) float64 {
	sep, c, s := impactAxis(&a, &b)

	me, him := rectangle(), rectangle()
	me.rotate(c, -s, a.Heading)
	him.rotate(c, -s, b.Heading)
	for k := range him.x {
		him.x[k] += sep
	}
	o1 := penetration(&me, &him)
	for k := range me.x {
		me.x[k] = -me.x[k]
		him.x[k] = -him.x[k]
	}
	o2 := penetration(&him, &me)
	return math.Max(o1, o2)
}

// Resolve exchanges momentum between two overlapping cars along the line of
// centers and pushes them apart by half the overlap each. It reports false
// and leaves both bodies untouched when they do not overlap.
func Resolve(a, b *Body) (Result, bool) {
	overlap := Overlap(*a, *b)
	if overlap <= contactEpsilon {
		return Result{}, false
	}
	_, c, s := impactAxis(a, b)

	// velocities in the impact frame
	x1 := a.XDot*c + a.YDot*s
	y1 := -a.XDot*s + a.YDot*c
	x2 := b.XDot*c + b.YDot*s
	y2 := -b.XDot*s + b.YDot*c

	closing := math.Abs(x2 - x1)
	e := math.Exp(-closing / Elasticity)

	x3 := .5 * (x1 + x2 - e*(x1-x2))
	x4 := .5 * (x1 + x2 + e*(x1-x2))

	y1 *= Friction
	a.XDot = x3*c - y1*s
	a.YDot = y1*c + x3*s
	b.XDot = x4*c - y2*s
	b.YDot = y2*c + x4*s

	a.X -= c * overlap / 2
	a.Y -= s * overlap / 2
	b.X += c * overlap / 2
	b.Y += s * overlap / 2

	lost := closing * (1 - e)
	return Result{
		Overlap:     overlap,
		Closing:     closing,
		Restitution: e,
		Damage:      lost*lost*DamageMultiplier - MinimumDamage,
	}, true
}
