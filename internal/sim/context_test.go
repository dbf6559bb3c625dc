package sim

import (
	"math"
	"testing"

	"github.com/OCAP2/racesim/internal/rng"
	"github.com/OCAP2/racesim/internal/track"
	"github.com/OCAP2/racesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steady keeps whatever speed it has and steers straight ahead.
type steady struct{ name string }

func (d steady) Name() string { return d.name }

func (d steady) Drive(s *core.Situation) core.ControlCommand {
	return core.ControlCommand{Vc: s.V}
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }

func (panicky) Drive(*core.Situation) core.ControlCommand { panic("lost it") }

// recorder counts listener calls.
type recorder struct {
	laps       int
	records    int
	pits       []core.PitState
	collisions int
	retired    map[int]string
	moves      int
}

func newRecorder() *recorder { return &recorder{retired: map[int]string{}} }

func (r *recorder) LapCompleted(_ *Car, newRecord bool) {
	r.laps++
	if newRecord {
		r.records++
	}
}

func (r *recorder) PitStateChanged(_ *Car, _, to core.PitState) { r.pits = append(r.pits, to) }

func (r *recorder) Collided(*Car, *Car, int, int, float64) { r.collisions++ }

func (r *recorder) Retired(car *Car, reason string) { r.retired[car.ID] = reason }

func (r *recorder) PositionChanged(*Car, int, int) { r.moves++ }

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// arena builds a racing context on the oval with n steady drivers.
func arena(t *testing.T, n int) (*Context, *recorder) {
	t.Helper()
	drivers := make([]core.Driver, n)
	for i := range drivers {
		drivers[i] = steady{name: "steady"}
	}
	c := New(track.Oval(), rng.New(7), drivers, DefaultOptions())
	rec := newRecorder()
	c.Listener = rec
	c.Begin(core.StageRacing, identity(n))
	return c, rec
}

// put places car at x, y heading ang at speed v on the first straight.
func put(c *Context, id int, x, y, ang, v float64) *Car {
	car := c.Cars[id]
	car.Place(x, y, ang, c.Stage)
	car.XDot, car.YDot = v*math.Cos(ang), v*math.Sin(ang)
	car.Starting = false
	return car
}

func TestNew(t *testing.T) {
	c, _ := arena(t, 3)
	require.Len(t, c.Cars, 3)
	for i, car := range c.Cars {
		assert.Equal(t, i, car.ID)
		assert.Equal(t, i, car.Situation().MyID)
		assert.Len(t, car.Situation().Scratch, core.PrivateDataSize)
		assert.True(t, car.Situation().Nearby[0].Empty())
	}
	assert.Equal(t, []int{0, 1, 2}, c.Order)
	assert.Equal(t, -1, c.Active)
	require.Len(t, c.LapFinish, 3)
	assert.Len(t, c.LapFinish[0], c.Opts.Laps+2)
}

func TestBegin_ResetsSession(t *testing.T) {
	c, _ := arena(t, 2)
	c.Elapsed, c.Ticks, c.Finished, c.OutCount = 12, 40, 1, 1
	c.Record = core.LapRecord{Speed: 200, Driver: "x"}
	c.Active = 1

	c.Begin(core.StagePractice, []int{1, 0})
	assert.Zero(t, c.Elapsed)
	assert.Zero(t, c.Ticks)
	assert.Zero(t, c.Finished)
	assert.Zero(t, c.OutCount)
	assert.Zero(t, c.Record.Speed)
	assert.Equal(t, -1, c.Active)
	assert.Nil(t, c.LapFinish, "gaps are only kept in a race")
	assert.Equal(t, []int{1, 0}, c.Order)
	assert.Equal(t, []int{1, 0}, c.PosOf)
	assert.Equal(t, 1, c.Leader().ID)
}

func TestPlace_KeepsQualifyingResults(t *testing.T) {
	c, _ := arena(t, 1)
	car := c.Cars[0]
	car.QualBestLap = 150
	car.SegID = 2
	car.Damage = 400
	car.Fuel = 3

	car.Place(10, 20, 0, core.StageQualifying)
	assert.Equal(t, 150.0, car.QualBestLap)
	assert.Zero(t, car.SegID)
	assert.Zero(t, car.Damage)
	assert.Equal(t, core.MaxFuel, car.Fuel)
	assert.Equal(t, -1, car.Laps)
	assert.True(t, car.Starting)
	assert.InDelta(t, core.StartingSpeed, car.Speed(), 1e-12)
}
