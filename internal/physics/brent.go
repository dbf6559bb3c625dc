package physics

import "math"

const (
	brentMaxIter = 20
	brentEPS     = 1.0e-8
)

// Brent finds a root of f inside [x1, x2] with Brent's hybrid of bisection,
// secant and inverse quadratic interpolation. It gives up after a fixed
// number of iterations and returns the best estimate. If f(x1) and f(x2)
// share a sign, x2 is returned.
func Brent(f func(float64) float64, x1, x2, tol float64) float64 {
	a, b, c := x1, x2, x2
	var d, e float64
	fa, fb := f(a), f(b)

	if (fa > 0 && fb > 0) || (fa < 0 && fb < 0) {
		return b
	}
	fc := fb
	for iter := 1; iter <= brentMaxIter; iter++ {
		if (fb > 0 && fc > 0) || (fb < 0 && fc < 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol1 := 2*brentEPS*math.Abs(b) + .5*tol
		xm := .5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b
		}
		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			s := fb / fa
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3*xm*q - math.Abs(tol1*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
	}
	return b
}
