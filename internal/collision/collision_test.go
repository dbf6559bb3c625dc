package collision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closingSpeed is the speed at which b approaches a along the line of centers.
func closingSpeed(a, b Body) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	d := math.Hypot(dx, dy)
	c, s := dx/d, dy/d
	return (a.XDot*c + a.YDot*s) - (b.XDot*c + b.YDot*s)
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Body
		overlap bool
	}{
		{"apart", Body{}, Body{X: 30, Y: 3}, false},
		{"far diagonal", Body{}, Body{X: 25, Y: 25, Heading: 1}, false},
		{"rotated corner inside", Body{}, Body{X: 3, Y: 9, Heading: .1}, true},
		{"nose to nose", Body{}, Body{X: 18, Y: 2, Heading: math.Pi}, true},
		{"crossing at right angles", Body{Heading: .05}, Body{X: 6, Y: 10, Heading: math.Pi / 2}, true},
		{"rear end in line", Body{X: 300, Y: 30}, Body{X: 315, Y: 30}, true},
		{"nose to tail touching", Body{}, Body{X: 20}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Overlap(tt.a, tt.b)
			if tt.overlap {
				assert.Greater(t, o, 0.0)
			} else {
				assert.Equal(t, 0.0, o)
			}
			assert.InDelta(t, o, Overlap(tt.b, tt.a), 1e-6, "overlap should be symmetric")
		})
	}
}

func TestOverlap_AlignedIsContinuous(t *testing.T) {
	a := Body{X: 300, Y: 30}
	b := Body{X: 315, Y: 30}

	assert.InDelta(t, 5.0, Overlap(a, b), 1e-9)

	b.Y += .001
	assert.InDelta(t, 5.0, Overlap(a, b), 1e-6)

	b.Y = 30
	b.Heading = 1e-9
	assert.InDelta(t, 5.0, Overlap(a, b), 1e-6)
}

func TestResolve_AlignedRearEnd(t *testing.T) {
	a := Body{X: 300, Y: 30, XDot: 10}
	b := Body{X: 315, Y: 30, XDot: 5}

	res, ok := Resolve(&a, &b)
	require.True(t, ok)
	assert.InDelta(t, 5.0, res.Overlap, 1e-9)
	assert.InDelta(t, 5.0, res.Closing, 1e-9)
	assert.Greater(t, b.XDot, 5.0)
	assert.Less(t, a.XDot, 10.0)
	assert.InDelta(t, 0, Overlap(a, b), 1e-6)
}

func TestBroadPhase(t *testing.T) {
	assert.True(t, BroadPhase(20, 10))
	assert.True(t, BroadPhase(-5, 3))
	assert.False(t, BroadPhase(20, 10.1))
}

func TestResolve_NoContact(t *testing.T) {
	a := Body{XDot: 10}
	b := Body{X: 40, XDot: -10}
	before := b

	_, ok := Resolve(&a, &b)
	assert.False(t, ok)
	assert.Equal(t, before, b)
	assert.Equal(t, 10.0, a.XDot)
}

func TestResolve_HeadOn(t *testing.T) {
	a := Body{XDot: 20}
	b := Body{X: 18, Y: 2, XDot: -20, Heading: math.Pi}
	pre := closingSpeed(a, b)
	require.InDelta(t, 40*18/math.Hypot(18, 2), pre, 1e-9)

	res, ok := Resolve(&a, &b)
	require.True(t, ok)

	assert.InDelta(t, pre, res.Closing, 1e-9)
	assert.Greater(t, res.Damage, 0.0, "40 ft/s impact must exceed the damage threshold")
	assert.Less(t, res.Restitution, 1.0)
	assert.InDelta(t, 0, Overlap(a, b), 1e-6, "cars should be separated after resolution")

	post := closingSpeed(a, b)
	assert.LessOrEqual(t, math.Abs(post), math.Abs(pre))
	assert.InDelta(t, -res.Restitution*pre, post, 1e-9)
}

func TestResolve_GentleContact(t *testing.T) {
	a := Body{XDot: 31}
	b := Body{X: 19, Y: 1, XDot: 30}

	res, ok := Resolve(&a, &b)
	require.True(t, ok)
	assert.Less(t, res.Damage, 0.0, "a 1 ft/s nudge should be absorbed")
}

func TestResolve_ClosingSpeedNeverGrows(t *testing.T) {
	cases := []struct{ a, b Body }{
		{Body{XDot: 80, YDot: 5}, Body{X: 15, Y: 4, XDot: 60, Heading: .2}},
		{Body{XDot: 150}, Body{X: 18, Y: -3, XDot: -150, Heading: math.Pi}},
		{Body{XDot: 40, YDot: 40, Heading: math.Pi / 4}, Body{X: 8, Y: 9, YDot: 70, Heading: math.Pi / 2}},
		{Body{YDot: 5, Heading: .05}, Body{X: 6, Y: 10, XDot: 2, Heading: math.Pi / 2}},
	}
	for i, tc := range cases {
		a, b := tc.a, tc.b
		pre := closingSpeed(a, b)
		_, ok := Resolve(&a, &b)
		require.True(t, ok, "case %d should overlap", i)
		assert.LessOrEqual(t, math.Abs(closingSpeed(a, b)), math.Abs(pre)+1e-9, "case %d", i)
	}
}
