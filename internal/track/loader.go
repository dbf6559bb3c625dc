package track

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// degreeThreshold is the first-arc value at or above which all arcs in a
// file are read as degrees.
const degreeThreshold = 5.0

// Load reads a .trk file from disk.
func Load(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	spec, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", name, err)
	}
	spec.Name = name
	return New(spec)
}

// Parse reads the line-oriented .trk format. Every line holds a fixed number
// of leading numbers; anything after them is a comment.
func Parse(r io.Reader) (Spec, error) {
	p := &lineParser{sc: bufio.NewScanner(r)}
	var spec Spec

	head, err := p.next("segment count", 1)
	if err != nil {
		return spec, err
	}
	nseg := int(head[0])
	if nseg < 2 || float64(nseg) != head[0] {
		return spec, fmt.Errorf("%w: bad segment count %v", ErrMalformed, head[0])
	}

	fields := []struct {
		what string
		dst  []*float64
	}{
		{"extent", []*float64{&spec.Layout.XMax, &spec.Layout.YMax}},
		{"width", []*float64{&spec.Width}},
		{"start", []*float64{&spec.StartX, &spec.StartY, &spec.StartAng}},
		{"scoreboard", []*float64{&spec.Layout.ScoreBoard[0], &spec.Layout.ScoreBoard[1]}},
		{"leaderboard", []*float64{&spec.Layout.LeaderBoard[0], &spec.Layout.LeaderBoard[1]}},
		{"instrument panel", []*float64{&spec.Layout.InstPanel[0], &spec.Layout.InstPanel[1]}},
		{"message board", []*float64{&spec.Layout.MessageBoard[0], &spec.Layout.MessageBoard[1]}},
	}
	for _, f := range fields {
		vals, err := p.next(f.what, len(f.dst))
		if err != nil {
			return spec, err
		}
		for i, d := range f.dst {
			*d = vals[i]
		}
	}

	vals, err := p.next("finish and start rows", 2)
	if err != nil {
		return spec, err
	}
	spec.Finish, spec.StartRows = vals[0], int(vals[1])

	if vals, err = p.next("pit side", 1); err != nil {
		return spec, err
	}
	spec.Pit.Side = int(vals[0])

	if vals, err = p.next("pit entry", 2); err != nil {
		return spec, err
	}
	spec.Pit.Entry, spec.Pit.LaneStart = vals[0], vals[1]

	if vals, err = p.next("pit exit", 2); err != nil {
		return spec, err
	}
	spec.Pit.LaneEnd, spec.Pit.Exit = vals[0], vals[1]

	if vals, err = p.next("pit speed", 1); err != nil {
		return spec, err
	}
	spec.Pit.Speed = vals[0]

	degrees := -1
	spec.Segments = make([]Def, nseg)
	for i := range spec.Segments {
		vals, err := p.next(fmt.Sprintf("segment %d", i), 2)
		if err != nil {
			return spec, err
		}
		d := Def{Radius: vals[0], Length: vals[1]}
		if d.Radius != 0 {
			if degrees == -1 {
				degrees = 0
				if d.Length >= degreeThreshold {
					degrees = 1
				}
			}
			if degrees == 1 {
				d.Length *= math.Pi / 180
			}
		}
		spec.Segments[i] = d
	}
	return spec, nil
}

type lineParser struct {
	sc   *bufio.Scanner
	line int
}

// next returns the first n numbers of the next non-blank line.
func (p *lineParser) next(what string, n int) ([]float64, error) {
	for p.sc.Scan() {
		p.line++
		fields := strings.Fields(p.sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < n {
			return nil, fmt.Errorf("%w: line %d (%s): want %d values, got %d", ErrMalformed, p.line, what, n, len(fields))
		}
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d (%s): %v", ErrMalformed, p.line, what, err)
			}
			out[i] = v
		}
		return out, nil
	}
	if err := p.sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track: %w", err)
	}
	return nil, fmt.Errorf("%w: unexpected end of file reading %s", ErrMalformed, what)
}

// Oval returns a built-in 1000 ft by 750 ft oval with left turns.
func Oval() *Track {
	t, err := New(OvalSpec())
	if err != nil {
		panic(err)
	}
	return t
}

// OvalSpec is the definition behind Oval.
func OvalSpec() Spec {
	return Spec{
		Name:      "oval",
		Width:     75,
		Finish:    .5,
		StartRows: 2,
		Pit: Pit{
			Side:      1,
			Entry:     3300,
			LaneStart: 3650,
			LaneEnd:   400,
			Exit:      700,
			Speed:     75,
		},
		Layout: Layout{XMax: 1400, YMax: 800},
		Segments: []Def{
			{Radius: 0, Length: 1000},
			{Radius: 375, Length: math.Pi},
			{Radius: 0, Length: 1000},
			{Radius: 375, Length: math.Pi},
		},
	}
}
