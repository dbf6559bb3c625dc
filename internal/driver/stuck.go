package driver

import "github.com/OCAP2/racesim/pkg/core"

// Stuck returns a recovery command when the car is over a wall, pointing the
// wrong way or nearly stopped. ok is false when the driver is free to drive.
func Stuck(s *core.Situation) (alpha, vc float64, ok bool) {
	v, vn := s.V, s.Vn
	crawl := .66667*v + 10

	switch {
	case s.ToLeft < 0: // over the left wall
		switch {
		case vn > .5*v, vn > -.5*v && s.Backward:
			alpha, vc = reverse(v)
		case vn < -.5*v:
			alpha, vc = .03, crawl
		default:
			alpha, vc = -.03, crawl
		}
		return alpha, vc, true

	case s.ToRight < 0: // over the right wall
		switch {
		case vn < -.5*v, vn < .5*v && s.Backward:
			alpha, vc = reverse(v)
		case vn > .5*v:
			alpha, vc = -.03, crawl
		default:
			alpha, vc = .03, crawl
		}
		return alpha, vc, true

	case s.Backward:
		switch {
		case vn > .866*v:
			alpha, vc = -.03, crawl
		case vn < -.866*v:
			alpha, vc = .03, crawl
		default:
			alpha, vc = reverse(v)
		}
		return alpha, vc, true

	case v < 15:
		if s.ToRight > s.ToLeft {
			alpha = .03
			if vn < -.7*v {
				alpha = -.03
			}
		} else {
			alpha = -.03
			if vn > .7*v {
				alpha = .03
			}
		}
		return alpha, crawl, true
	}
	return 0, 0, false
}

// reverse brakes to a stop and then backs up slowly.
func reverse(v float64) (alpha, vc float64) {
	if v > 10 {
		return 0, 0
	}
	return 0, -15
}
