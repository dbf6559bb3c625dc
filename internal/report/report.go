// Package report scores races and renders results and season standings.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/OCAP2/racesim/pkg/core"
)

// Points awards by finishing place. Places past the table score nothing.
var Points = []int{20, 16, 14, 12, 10, 8, 6, 5, 4, 3, 2, 1}

// Score sets the points of every line of a race result. The pole sitter gets
// a bonus point when qualifying set the grid, as does every car that led the
// most laps.
func Score(r *core.SessionResult, pole bool) {
	most := 0
	for _, c := range r.Cars {
		if !c.DNQ {
			most = max(most, c.LapsLed)
		}
	}
	for i := range r.Cars {
		c := &r.Cars[i]
		c.Points = 0
		if c.DNQ {
			continue
		}
		if c.Finish < len(Points) {
			c.Points = Points[c.Finish]
		}
		if pole && c.Started == 0 {
			c.Points++
		}
		if most > 0 && c.LapsLed == most {
			c.Points++
		}
	}
}

// Standing is one driver's season total.
type Standing struct {
	Car          int     `json:"car"`
	Driver       string  `json:"driver"`
	Points       int     `json:"points"`
	Starts       int     `json:"starts"`
	Wins         int     `json:"wins"`
	Poles        int     `json:"poles"`
	TopFive      int     `json:"topFive"`
	LapsLed      int     `json:"lapsLed"`
	DNF          int     `json:"dnf"`
	DNQ          int     `json:"dnq"`
	BestLapSpeed float64 `json:"bestLapSpeed"` // ft/s
}

// Season is the scored outcome of a run.
type Season struct {
	Track      string                `json:"track"`
	Qualifying bool                  `json:"qualifying"`
	Races      []*core.SessionResult `json:"races"`
	Standings  []Standing            `json:"standings"`
	Record     core.LapRecord        `json:"record"`
}

// Build scores every completed race in results and totals the standings.
// Practice and qualifying results only decide whether the pole bonus applies.
func Build(results []*core.SessionResult) *Season {
	s := &Season{}
	for _, r := range results {
		if r.Stage == core.StageQualifying {
			s.Qualifying = true
		}
	}

	totals := map[int]*Standing{}
	for _, r := range results {
		if r.Record.Speed > s.Record.Speed {
			s.Record = r.Record
		}
		if r.Stage != core.StageRacing || r.Cancelled {
			continue
		}
		s.Track = r.Track
		Score(r, s.Qualifying)
		s.Races = append(s.Races, r)

		for _, c := range r.Cars {
			st, ok := totals[c.Car]
			if !ok {
				st = &Standing{Car: c.Car, Driver: c.Driver}
				totals[c.Car] = st
			}
			st.Points += c.Points
			st.LapsLed += c.LapsLed
			st.BestLapSpeed = max(st.BestLapSpeed, c.BestLapSpeed)
			if c.DNQ {
				st.DNQ++
				continue
			}
			st.Starts++
			switch {
			case c.Out:
				st.DNF++
			case c.Finish == 0:
				st.Wins++
			}
			if c.Finish < 5 && !c.Out {
				st.TopFive++
			}
			if s.Qualifying && c.Started == 0 {
				st.Poles++
			}
		}
	}

	for _, st := range totals {
		s.Standings = append(s.Standings, *st)
	}
	slices.SortFunc(s.Standings, func(a, b Standing) int {
		return cmp.Or(
			cmp.Compare(b.Points, a.Points),
			cmp.Compare(b.Wins, a.Wins),
			cmp.Compare(a.Car, b.Car),
		)
	})
	return s
}

func status(c core.CarResult) string {
	switch {
	case c.DNQ:
		return "dnq"
	case c.Out:
		return "out"
	case c.Done:
		return "finished"
	default:
		return "running"
	}
}

func mph(fps float64) float64 { return fps * core.FPSToMPH }

// WriteRace renders one race result as a table.
func WriteRace(w io.Writer, r *core.SessionResult) error {
	title := fmt.Sprintf("%s %d at %s", r.Stage, r.Index+1, r.Track)
	if r.Cancelled {
		title += " (cancelled)"
	}
	if _, err := fmt.Fprintf(w, "%s, %.1f s simulated\n", title, r.SimTime); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Pos\tDriver\tStart\tLaps\tLed\tAvg mph\tBest mph\tPits\tDamage\tStatus\tPts\t")
	for _, c := range r.Cars {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%.2f\t%.2f\t%d\t%d\t%s\t%d\t\n",
			c.Finish+1, c.Driver, c.Started+1, c.Laps, c.LapsLed,
			mph(c.AvgSpeed), mph(c.BestLapSpeed), c.PitStops, c.Damage, status(c), c.Points)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if r.Record.Driver != "" {
		_, err := fmt.Fprintf(w, "Lap record: %s at %.2f mph\n", r.Record.Driver, mph(r.Record.Speed))
		return err
	}
	return nil
}

// WriteText renders every race followed by the standings.
func (s *Season) WriteText(w io.Writer) error {
	for _, r := range s.Races {
		if err := WriteRace(w, r); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Standings after %d race(s)\n", len(s.Races)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Pos\tDriver\tPts\tStarts\tWins\tPoles\tTop 5\tLed\tDNF\tDNQ\tBest mph\t")
	for i, st := range s.Standings {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2f\t\n",
			i+1, st.Driver, st.Points, st.Starts, st.Wins, st.Poles, st.TopFive,
			st.LapsLed, st.DNF, st.DNQ, mph(st.BestLapSpeed))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if s.Record.Driver != "" {
		_, err := fmt.Fprintf(w, "Track record: %s at %.2f mph\n", s.Record.Driver, mph(s.Record.Speed))
		return err
	}
	return nil
}
