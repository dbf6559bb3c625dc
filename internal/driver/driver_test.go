package driver

import (
	"math"
	"testing"

	"github.com/OCAP2/racesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyNearby() [core.NearbyCars]core.NearbyCar {
	var n [core.NearbyCars]core.NearbyCar
	for k := range n {
		n[k].Who = core.NoCar
	}
	return n
}

func TestRegistry(t *testing.T) {
	assert.Subset(t, Names(), []string{"Tutorial4", "Gruppe12", "Reverse"})

	a, err := New("Tutorial4")
	require.NoError(t, err)
	b, err := New("Tutorial4")
	require.NoError(t, err)
	assert.Equal(t, "Tutorial4", a.Name())
	assert.NotSame(t, a, b, "every car needs its own driver state")

	_, err = New("nobody")
	assert.ErrorIs(t, err, ErrUnknown)

	ds, err := NewAll([]string{"Gruppe12", "Reverse"})
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "Reverse", ds[1].Name())

	_, err = NewAll([]string{"Gruppe12", "nobody"})
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestStuck(t *testing.T) {
	crawl := func(v float64) float64 { return .66667*v + 10 }
	tests := []struct {
		name  string
		s     core.Situation
		ok    bool
		alpha float64
		vc    float64
	}{
		{"driving normally", core.Situation{V: 80, ToLeft: 30, ToRight: 45}, false, 0, 0},
		{"over left wall heading in", core.Situation{V: 40, Vn: 30, ToLeft: -2, ToRight: 77}, true, 0, 0},
		{"over left wall slow heading in", core.Situation{V: 8, Vn: 6, ToLeft: -2, ToRight: 77}, true, 0, -15},
		{"over left wall heading out", core.Situation{V: 40, Vn: -30, ToLeft: -2, ToRight: 77}, true, .03, crawl(40)},
		{"over left wall along it", core.Situation{V: 40, ToLeft: -2, ToRight: 77}, true, -.03, crawl(40)},
		{"over right wall heading out", core.Situation{V: 40, Vn: 30, ToLeft: 77, ToRight: -2}, true, -.03, crawl(40)},
		{"over right wall backward", core.Situation{V: 12, Backward: true, ToLeft: 77, ToRight: -2}, true, 0, 0},
		{"backward sideways left", core.Situation{V: 30, Vn: 28, Backward: true, ToLeft: 30, ToRight: 45}, true, -.03, crawl(30)},
		{"backward", core.Situation{V: 5, Backward: true, ToLeft: 30, ToRight: 45}, true, 0, -15},
		{"slow on left side", core.Situation{V: 10, ToLeft: 20, ToRight: 55}, true, .03, crawl(10)},
		{"slow on right side", core.Situation{V: 10, ToLeft: 55, ToRight: 20}, true, -.03, crawl(10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alpha, vc, ok := Stuck(&tt.s)
			require.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.alpha, alpha, 1e-12)
			assert.InDelta(t, tt.vc, vc, 1e-9)
		})
	}
}

func straight() core.Situation {
	return core.Situation{
		ToLeft: 45, ToRight: 30, V: 100, ToEnd: 700,
		CurLen: 1000, NexRad: 300, NexLen: math.Pi,
		Fuel: 100, Starting: true, Nearby: emptyNearby(),
	}
}

func TestTutorial4_Straight(t *testing.T) {
	d := &Tutorial4{}
	s := straight()
	cmd := d.Drive(&s)
	assert.InDelta(t, 0, cmd.Alpha, 1e-12, "holds the lane it started in")
	assert.InDelta(t, 150, cmd.Vc, 1e-9, "full throttle far from the curve")
	assert.False(t, cmd.RequestPit)

	// close to the end of the straight, too fast for the curve
	s.Starting = false
	s.ToEnd = 50
	s.V = 120
	cmd = d.Drive(&s)
	assert.InDelta(t, (45-(entryMargin+entrySlope*50))/75, cmd.Alpha, 1e-9)
	assert.InDelta(t, 120-brakeSlip, cmd.Vc, 1e-9)
}

func TestTutorial4_Curve(t *testing.T) {
	d := &Tutorial4{}
	s := core.Situation{
		CurRad: 375, CurLen: math.Pi, ToEnd: 1, ToLeft: 10, ToRight: 65,
		V: 100, Fuel: 100, Nearby: emptyNearby(),
	}
	cmd := d.Drive(&s)

	speed := math.Sqrt((375 + margin) * core.Gravity)
	bias := 100 * 100 / (speed * speed) * math.Atan(bigSlip/speed)
	assert.InDelta(t, bias, cmd.Alpha, 1e-9, "on the line, only the slip bias remains")
	assert.InDelta(t, .5*(100+speed)/math.Cos(bias), cmd.Vc, 1e-9)
}

func TestTutorial4_Passing(t *testing.T) {
	free := straight()
	base := (&Tutorial4{}).Drive(&free)

	s := straight()
	s.Nearby[0] = core.NearbyCar{Who: 1, RelX: 2, RelY: 30, RelYDot: -20}
	d := &Tutorial4{}
	cmd := d.Drive(&s)

	assert.InDelta(t, -deltaLane, d.laneInc, 1e-12, "car slightly right: move left")
	assert.InDelta(t, base.Alpha+deltaLane/75, cmd.Alpha, 1e-9)
	assert.InDelta(t, base.Vc, cmd.Vc, 1e-9, "no braking 1.5 s from contact")

	// imminent contact brakes
	s.Nearby[0].RelY = 12
	cmd = d.Drive(&s)
	assert.InDelta(t, 100-brakeCurveSlip, cmd.Vc, 1e-9)

	// the offset never exceeds a quarter of the width
	for range 50 {
		d.Drive(&s)
	}
	assert.GreaterOrEqual(t, d.laneInc, -.25*75)
}

func TestTutorial4_Pit(t *testing.T) {
	s := straight()
	s.Fuel = 8
	s.Damage = 1200
	cmd := (&Tutorial4{}).Drive(&s)
	assert.True(t, cmd.RequestPit)
	assert.Equal(t, 1200, cmd.RepairAmount)
	assert.Equal(t, core.MaxFuel, cmd.FuelAmount)
}

func TestGruppe12_TargetSpeed(t *testing.T) {
	tests := []struct {
		name string
		s    core.Situation
		want float64
	}{
		{"early straight", core.Situation{CurLen: 1000, ToEnd: 800, NexRad: 375}, 1000},
		{"late straight", core.Situation{CurLen: 1000, ToEnd: 200, NexRad: 375}, math.Sqrt(375 * cornerFactor)},
		{"late straight into right curve", core.Situation{CurLen: 1000, ToEnd: 200, NexRad: -200}, math.Sqrt(200 * cornerFactor)},
		{"early curve", core.Situation{CurRad: 375, CurLen: math.Pi, ToEnd: 3}, math.Sqrt(375 * cornerFactor)},
		{"late curve onto straight", core.Situation{CurRad: 375, CurLen: math.Pi, ToEnd: .5}, 1000},
		{"late curve into curve", core.Situation{CurRad: -200, CurLen: math.Pi, ToEnd: .5, NexRad: 300}, math.Sqrt(300 * cornerFactor)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, targetSpeed(&tt.s), 1e-9)
		})
	}
}

func TestGruppe12_Steering(t *testing.T) {
	s := core.Situation{ToLeft: 50, ToRight: 25, CurLen: 1000, ToEnd: 900}
	cmd := Gruppe12{}.Drive(&s)
	assert.InDelta(t, 0, cmd.Alpha, 1e-12, "stopped car on its line does not divide by zero")

	s.ToLeft, s.ToRight, s.V = 20, 55, 100
	cmd = Gruppe12{}.Drive(&s)
	assert.Less(t, cmd.Alpha, 0.0, "left of the line: steer right")
}

func TestReverse_UsesScratch(t *testing.T) {
	s := core.Situation{V: 20, Starting: true, Scratch: make([]byte, core.PrivateDataSize)}
	d := Reverse{}

	cmd := d.Drive(&s)
	assert.InDelta(t, 20, cmd.Vc, 1e-12)
	s.Starting = false
	for range rollTicks - 1 {
		d.Drive(&s)
	}
	cmd = d.Drive(&s)
	assert.Equal(t, 0.5, cmd.Alpha, "turns around after rolling")

	s.Backward = true
	cmd = d.Drive(&s)
	assert.Equal(t, 0.0, cmd.Alpha)
	assert.Equal(t, 40.0, cmd.Vc)

	s.Starting = true
	cmd = d.Drive(&s)
	assert.InDelta(t, 20, cmd.Vc, 1e-12, "a new session resets the count")
}
