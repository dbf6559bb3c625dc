package movie

import (
	"encoding/binary"
	"io"
	"slices"

	"github.com/OCAP2/racesim/internal/sim"
)

type point struct{ x, y float64 }

// Player is a sim.Replayer over a decoded movie.
type Player struct {
	header   Header
	points   [][]point
	headings [][]float64
	frames   int
}

// Load decodes a movie. A truncated sample stream is cut back to the last
// sample every car has.
func Load(r io.Reader) (*Player, error) {
	h, xy, ang, err := decode(r)
	if err != nil {
		return nil, err
	}
	n := h.Cars()
	p := &Player{
		header:   h,
		points:   make([][]point, n),
		headings: make([][]float64, n),
	}

	last := make([]point, n)
	for i, k := 0, 0; ; i++ {
		car := i % n
		var pt point
		if len(p.points[car])%fullEvery == 0 {
			if k+4 > len(xy) {
				break
			}
			pt.x = float64(int16(binary.BigEndian.Uint16(xy[k:])))
			pt.y = float64(int16(binary.BigEndian.Uint16(xy[k+2:])))
			k += 4
		} else {
			if k+2 > len(xy) {
				break
			}
			pt.x = last[car].x + float64(int8(xy[k]))
			pt.y = last[car].y + float64(int8(xy[k+1]))
			k += 2
		}
		last[car] = pt
		p.points[car] = append(p.points[car], pt)
	}
	for i, b := range ang {
		p.headings[i%n] = append(p.headings[i%n], float64(int8(b))*angleScale)
	}

	p.frames = len(p.points[0])
	for car := range n {
		p.frames = min(p.frames, len(p.points[car]), len(p.headings[car]))
	}
	return p, nil
}

// Header returns the movie header.
func (p *Player) Header() Header { return p.header }

// Frames is the number of samples per car.
func (p *Player) Frames() int { return p.frames }

// StartOrder is the recorded grid, or nil when the movie has none.
func (p *Player) StartOrder() []int {
	if len(p.header.StartOrder) != p.header.Cars() {
		return nil
	}
	return slices.Clone(p.header.StartOrder)
}

// Replay moves the cars to their positions at tick, interpolating between
// samples. Cars beyond the recorded cast are left alone.
func (p *Player) Replay(tick int, cars []*sim.Car) bool {
	k := tick / sampleTicks
	frac := float64(tick%sampleTicks) / sampleTicks
	if tick < 0 || k >= p.frames || (frac > 0 && k+1 >= p.frames) {
		return false
	}
	for i, car := range cars[:min(len(cars), len(p.points))] {
		pts := p.points[i]
		at := func(j int) point {
			// past either end the path continues in a straight line
			switch last := p.frames - 1; {
			case last == 0:
				return pts[0]
			case j < 0:
				return point{2*pts[0].x - pts[1].x, 2*pts[0].y - pts[1].y}
			case j > last:
				return point{2*pts[last].x - pts[last-1].x, 2*pts[last].y - pts[last-1].y}
			}
			return pts[j]
		}
		pos := catmullRom(at(k-1), at(k), at(k+1), at(k+2), frac)
		car.X, car.Y = pos.x, pos.y

		h := p.headings[i]
		a := h[k]
		if frac > 0 {
			a += wrapAngle(h[k+1]-a) * frac
		}
		car.Ang = wrapAngle(a)
		car.Alpha = 0
	}
	return true
}

// catmullRom evaluates the spline through p1 and p2 at t in [0,1).
func catmullRom(p0, p1, p2, p3 point, t float64) point {
	eval := func(v0, v1, v2, v3 float64) float64 {
		a0 := v1
		a1 := .5 * (v2 - v0)
		a2 := .5 * (2*v0 - 5*v1 + 4*v2 - v3)
		a3 := .5 * (-v0 + 3*v1 - 3*v2 + v3)
		return ((a3*t+a2)*t+a1)*t + a0
	}
	return point{eval(p0.x, p1.x, p2.x, p3.x), eval(p0.y, p1.y, p2.y, p3.y)}
}
