package report

import (
	"bytes"
	"testing"

	"github.com/OCAP2/racesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raceResult(index int, lines ...core.CarResult) *core.SessionResult {
	for i := range lines {
		lines[i].Finish = i
	}
	return &core.SessionResult{Stage: core.StageRacing, Index: index, Track: "oval", Cars: lines}
}

func TestScore(t *testing.T) {
	r := raceResult(0,
		core.CarResult{Car: 2, Driver: "c", Started: 1, LapsLed: 4},
		core.CarResult{Car: 0, Driver: "a", Started: 0, LapsLed: 6},
		core.CarResult{Car: 1, Driver: "b", Started: 2},
	)
	Score(r, true)
	assert.Equal(t, 20, r.Cars[0].Points)
	assert.Equal(t, 16+1+1, r.Cars[1].Points)
	assert.Equal(t, 14, r.Cars[2].Points)

	Score(r, false)
	assert.Equal(t, 16+1, r.Cars[1].Points)
}

func TestScore_TiedLeadersAndDNQ(t *testing.T) {
	r := raceResult(0,
		core.CarResult{Car: 0, Started: 1, LapsLed: 5},
		core.CarResult{Car: 1, Started: 3, LapsLed: 5},
		core.CarResult{Car: 2, Started: 2, DNQ: true},
	)
	Score(r, true)
	assert.Equal(t, 21, r.Cars[0].Points)
	assert.Equal(t, 17, r.Cars[1].Points)
	assert.Zero(t, r.Cars[2].Points)
}

func TestScore_IgnoresLapsLedOfNonQualifiers(t *testing.T) {
	r := raceResult(0,
		core.CarResult{Car: 0, Started: 0, LapsLed: 1},
		core.CarResult{Car: 1, Started: 1},
		core.CarResult{Car: 2, Started: 2, LapsLed: 2, DNQ: true},
	)
	Score(r, true)
	assert.Equal(t, 22, r.Cars[0].Points, "win, pole and most laps led")
}

func TestScore_NoLapsLed(t *testing.T) {
	r := raceResult(0, core.CarResult{Car: 0, Started: 1}, core.CarResult{Car: 1, Started: 0})
	Score(r, false)
	assert.Equal(t, 20, r.Cars[0].Points)
	assert.Equal(t, 16, r.Cars[1].Points)
}

func TestScore_PastPointsTable(t *testing.T) {
	lines := make([]core.CarResult, 14)
	for i := range lines {
		lines[i].Car = i
		lines[i].Started = i
	}
	r := raceResult(0, lines...)
	Score(r, false)
	assert.Equal(t, 1, r.Cars[11].Points)
	assert.Zero(t, r.Cars[12].Points)
	assert.Zero(t, r.Cars[13].Points)
}

func TestBuild(t *testing.T) {
	qual := &core.SessionResult{Stage: core.StageQualifying}
	race1 := raceResult(0,
		core.CarResult{Car: 0, Driver: "a", Started: 0, LapsLed: 10, Done: true, BestLapSpeed: 150},
		core.CarResult{Car: 1, Driver: "b", Started: 1, Done: true, BestLapSpeed: 160},
	)
	race1.Record = core.LapRecord{Speed: 160, Driver: "b"}
	race2 := raceResult(1,
		core.CarResult{Car: 1, Driver: "b", Started: 1, LapsLed: 10, Done: true},
		core.CarResult{Car: 0, Driver: "a", Started: 0, Out: true},
	)
	cancelled := raceResult(2, core.CarResult{Car: 0, Driver: "a"})
	cancelled.Cancelled = true

	s := Build([]*core.SessionResult{qual, race1, race2, cancelled})
	require.Len(t, s.Races, 2)
	assert.True(t, s.Qualifying)
	assert.Equal(t, "oval", s.Track)
	assert.Equal(t, "b", s.Record.Driver)

	require.Len(t, s.Standings, 2)
	a, b := s.Standings[0], s.Standings[1]
	assert.Equal(t, "a", a.Driver)
	assert.Equal(t, 20+1+1+16+1, a.Points)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 2, a.Poles)
	assert.Equal(t, 1, a.DNF)
	assert.Equal(t, 2, a.Starts)
	assert.Equal(t, 1, a.TopFive)

	assert.Equal(t, "b", b.Driver)
	assert.Equal(t, 16+20+1, b.Points)
	assert.Equal(t, 1, b.Wins)
	assert.Zero(t, b.Poles)
	assert.Equal(t, 2, b.TopFive)
	assert.Equal(t, 160.0, b.BestLapSpeed)
}

func TestBuild_TieBreaksOnWins(t *testing.T) {
	s := Build([]*core.SessionResult{
		raceResult(0,
			core.CarResult{Car: 0, Driver: "a"},
			core.CarResult{Car: 1, Driver: "b", LapsLed: 5},
			core.CarResult{Car: 2, Driver: "c"},
		),
		raceResult(1,
			core.CarResult{Car: 2, Driver: "c"},
			core.CarResult{Car: 1, Driver: "b", LapsLed: 5},
			core.CarResult{Car: 0, Driver: "a"},
		),
	})
	require.Len(t, s.Standings, 3)
	for _, st := range s.Standings {
		assert.Equal(t, 34, st.Points, st.Driver)
	}
	assert.Equal(t, "a", s.Standings[0].Driver)
	assert.Equal(t, "c", s.Standings[1].Driver)
	assert.Equal(t, "b", s.Standings[2].Driver)
}

func TestWriteText(t *testing.T) {
	r := raceResult(0,
		core.CarResult{Car: 0, Driver: "Tutorial4", Laps: 10, LapsLed: 10, Done: true, AvgSpeed: 220},
		core.CarResult{Car: 1, Driver: "Gruppe12", Started: 1, Laps: 3, Out: true},
	)
	r.Record = core.LapRecord{Speed: 220, Driver: "Tutorial4"}
	s := Build([]*core.SessionResult{r})

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "racing 1 at oval")
	assert.Contains(t, out, "Tutorial4")
	assert.Contains(t, out, "finished")
	assert.Contains(t, out, "out")
	assert.Contains(t, out, "150.00") // 220 ft/s
	assert.Contains(t, out, "Standings after 1 race(s)")
	assert.Contains(t, out, "Track record: Tutorial4 at 150.00 mph")
}
