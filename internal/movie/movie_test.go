package movie

import (
	"bytes"
	"compress/gzip"
	"math"
	"path/filepath"
	"testing"

	"github.com/OCAP2/racesim/internal/sim"
	"github.com/OCAP2/racesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named string

func (n named) Name() string { return string(n) }

func (named) Drive(*core.Situation) core.ControlCommand { return core.ControlCommand{} }

func cast(names ...string) []*sim.Car {
	cars := make([]*sim.Car, len(names))
	for i, n := range names {
		cars[i] = &sim.Car{ID: i, Driver: named(n), Started: i}
	}
	return cars
}

// circle puts the cars on a 400 ft circle at 100 ft/s, half a lap apart.
func circle(cars []*sim.Car, tick int) {
	const r, v = 400.0, 100.0
	for i, car := range cars {
		theta := float64(i)*math.Pi + v/r*float64(tick)*core.DefaultDeltaTime
		car.X = 1000 + r*math.Cos(theta)
		car.Y = 500 + r*math.Sin(theta)
		car.Ang = wrapAngle(theta + math.Pi/2)
		car.Alpha = 0
	}
}

func record(t *testing.T, cars []*sim.Car, ticks int, move func(int)) *Player {
	t.Helper()
	rec := NewRecorder("oval", 0)
	for tick := range ticks {
		move(tick)
		rec.Trace(tick, cars)
	}
	assert.Equal(t, ticks, rec.Ticks())

	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf))
	p, err := Load(&buf)
	require.NoError(t, err)
	return p
}

func TestRoundTrip(t *testing.T) {
	live := cast("a", "b")
	p := record(t, live, 300, func(tick int) { circle(live, tick) })
	assert.Equal(t, 34, p.Frames())

	played := cast("a", "b")
	for tick := 0; tick <= 297; tick++ {
		require.True(t, p.Replay(tick, played), "tick %d", tick)
		circle(live, tick)
		for i := range live {
			assert.Less(t, math.Hypot(played[i].X-live[i].X, played[i].Y-live[i].Y), 2.0, "car %d tick %d", i, tick)
			assert.Less(t, math.Abs(wrapAngle(played[i].Ang-live[i].Ang)), .05, "car %d tick %d", i, tick)
		}
	}
	assert.False(t, p.Replay(298, played))
}

func TestHeader(t *testing.T) {
	cars := cast("a", "b", "c")
	cars[0].Started, cars[1].Started, cars[2].Started = 2, 0, 1
	p := record(t, cars, 10, func(int) {})

	h := p.Header()
	assert.Equal(t, "oval", h.Track)
	assert.Equal(t, []string{"a", "b", "c"}, h.Drivers)
	assert.Equal(t, "racing", h.Stage)
	assert.Equal(t, core.DefaultDeltaTime, h.DeltaTime)
	assert.Equal(t, []int{1, 2, 0}, p.StartOrder())
}

func TestHeader_BrokenGrid(t *testing.T) {
	cars := cast("a", "b")
	cars[1].Started = 0
	p := record(t, cars, 1, func(int) {})
	assert.Nil(t, p.StartOrder())
}

func TestDeltaOverflowCatchesUp(t *testing.T) {
	cars := cast("a")
	p := record(t, cars, 30, func(tick int) {
		cars[0].X, cars[0].Y = 100, 100
		if tick >= sampleTicks {
			cars[0].X = 400
		}
	})

	got := cast("a")
	require.True(t, p.Replay(sampleTicks, got))
	assert.Equal(t, 227.0, got[0].X)
	require.True(t, p.Replay(3*sampleTicks, got))
	assert.Equal(t, 400.0, got[0].X)
	assert.Equal(t, 100.0, got[0].Y)
}

func TestSaveOpen(t *testing.T) {
	cars := cast("a", "b")
	rec := NewRecorder("speedway", .1)
	for tick := range 20 {
		circle(cars, tick)
		rec.Trace(tick, cars)
	}
	path := filepath.Join(t.TempDir(), "race.mov")
	require.NoError(t, rec.Save(path))

	p, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "speedway", p.Header().Track)
	assert.Equal(t, .1, p.Header().DeltaTime)
	assert.Equal(t, 3, p.Frames())
}

func TestEncode_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewRecorder("oval", 0).Encode(&buf))
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("plain text")))
	assert.ErrorIs(t, err, ErrFormat)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte("SOMETHING ELSE\n{}\n"))
	require.NoError(t, zw.Close())
	_, err = Load(&buf)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestCatmullRom(t *testing.T) {
	p0, p1, p2, p3 := point{0, 0}, point{1, 2}, point{2, 4}, point{3, 6}
	assert.Equal(t, p1, catmullRom(p0, p1, p2, p3, 0))
	mid := catmullRom(p0, p1, p2, p3, .5)
	assert.InDelta(t, 1.5, mid.x, 1e-12)
	assert.InDelta(t, 3.0, mid.y, 1e-12)
}
