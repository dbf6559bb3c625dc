// Package track builds closed-loop track geometry from segment definitions
// and answers the track-relative queries the simulation needs.
package track

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/racesim/pkg/core"
)

// ErrMalformed is wrapped by every geometry validation error.
var ErrMalformed = errors.New("malformed track")

// Largest gap, in feet and radians, between the end of the last segment and
// the start line that still counts as a closed loop.
const (
	maxClosureGap      = 5.0
	maxHeadingMismatch = .01
)

// Segment is one straight or arc of a wall.
type Segment struct {
	Radius float64 // 0 straight, >0 left turn, <0 right turn
	Length float64 // feet for straights, radians for arcs
	BegX   float64
	BegY   float64
	EndX   float64
	EndY   float64
	CenX   float64
	CenY   float64
	BegAng float64
	EndAng float64
}

// Straight reports whether the segment has no curvature.
func (s Segment) Straight() bool { return s.Radius == 0 }

// Def is the input definition of a segment: the right-wall radius and either
// a straight length in feet or an arc in radians.
type Def struct {
	Radius float64
	Length float64
}

// Pit describes the pit lane. Distances are measured from the finish line.
type Pit struct {
	Side      int // 1 right side, -1 left side
	Entry     float64
	LaneStart float64
	LaneEnd   float64
	Exit      float64
	Speed     float64 // ft/s
}

// Layout carries the display coordinates stored in track files. They are
// not used by the simulation.
type Layout struct {
	XMax, YMax   float64
	ScoreBoard   [2]float64
	LeaderBoard  [2]float64
	InstPanel    [2]float64
	MessageBoard [2]float64
}

// Track is an immutable closed loop. Build it with New.
type Track struct {
	Name      string
	Width     float64
	StartX    float64 // right wall start
	StartY    float64
	StartAng  float64
	Finish    float64 // finish line as a fraction of segment 0
	StartRows int
	Pit       Pit
	Layout    Layout

	Right   []Segment
	Left    []Segment
	SegDist []float64 // distance from the finish line to the end of each segment
	Length  float64   // along the track center line

	LeftStartX float64
	LeftStartY float64
}

// Spec is everything needed to build a Track.
type Spec struct {
	Name      string
	Width     float64
	StartX    float64
	StartY    float64
	StartAng  float64
	Finish    float64
	StartRows int
	Pit       Pit
	Layout    Layout
	Segments  []Def
}

// New validates the spec and computes the wall geometry.
func New(spec Spec) (*Track, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	n := len(spec.Segments)
	t := &Track{
		Name:      spec.Name,
		Width:     spec.Width,
		StartX:    spec.StartX,
		StartY:    spec.StartY,
		StartAng:  spec.StartAng,
		Finish:    spec.Finish,
		StartRows: spec.StartRows,
		Pit:       spec.Pit,
		Layout:    spec.Layout,
		Right:     make([]Segment, n),
		Left:      make([]Segment, n),
		SegDist:   make([]float64, n),
	}
	if t.StartRows < 1 {
		t.StartRows = 2
	}
	if t.Pit.Side == 0 {
		t.Pit.Side = 1
	}

	for i, d := range spec.Segments {
		t.Right[i].Radius = d.Radius
		t.Right[i].Length = d.Length
		t.Left[i].Length = d.Length
		if d.Radius != 0 {
			t.Left[i].Radius = d.Radius - spec.Width
		}
	}

	for i := 0; i < n; i++ {
		t.Length += t.SegmentFeet(i)
	}

	t.LeftStartX = t.StartX - t.Width*math.Sin(t.StartAng)
	t.LeftStartY = t.StartY + t.Width*math.Cos(t.StartAng)
	layOut(t.Right, t.StartX, t.StartY, t.StartAng)
	layOut(t.Left, t.LeftStartX, t.LeftStartY, t.StartAng)
	if gap := t.ClosureGap(); gap > maxClosureGap {
		return nil, fmt.Errorf("%w: loop does not close, %.1f ft gap at the start line", ErrMalformed, gap)
	}
	if d := t.headingMismatch(); d > maxHeadingMismatch {
		return nil, fmt.Errorf("%w: loop ends %.3f rad off the start heading", ErrMalformed, d)
	}

	for i := 0; i < n; i++ {
		if i == 0 {
			t.SegDist[i] = -t.Finish * t.Left[0].Length
		} else {
			t.SegDist[i] = t.SegDist[i-1]
		}
		t.SegDist[i] += t.SegmentFeet(i)
	}
	return t, nil
}

// layOut fills coordinates and headings of consecutive segments.
func layOut(seg []Segment, x, y, ang float64) {
	for i := range seg {
		s := &seg[i]
		var nx, ny, nang float64
		if s.Radius == 0 {
			nx = x + s.Length*math.Cos(ang)
			ny = y + s.Length*math.Sin(ang)
			nang = ang
		} else {
			s.CenX = x - s.Radius*math.Sin(ang)
			s.CenY = y + s.Radius*math.Cos(ang)
			if s.Radius > 0 {
				nang = ang + s.Length
				if nang > 2*math.Pi {
					nang -= 2 * math.Pi
				}
			} else {
				nang = ang - s.Length
				if nang < -2*math.Pi {
					nang += 2 * math.Pi
				}
			}
			nx = s.CenX + s.Radius*math.Sin(nang)
			ny = s.CenY - s.Radius*math.Cos(nang)
		}
		s.BegX, s.BegY, s.BegAng = x, y, ang
		s.EndX, s.EndY, s.EndAng = nx, ny, nang
		x, y, ang = nx, ny, nang
	}
}

func (s Spec) validate() error {
	if len(s.Segments) < 2 {
		return fmt.Errorf("%w: need at least 2 segments, got %d", ErrMalformed, len(s.Segments))
	}
	if s.Width <= 0 {
		return fmt.Errorf("%w: width must be positive", ErrMalformed)
	}
	if s.Finish < 0 || s.Finish > 1 {
		return fmt.Errorf("%w: finish fraction %v outside [0,1]", ErrMalformed, s.Finish)
	}
	if s.Segments[0].Radius != 0 {
		return fmt.Errorf("%w: segment 0 must be a straight", ErrMalformed)
	}
	if s.Pit.Side < -1 || s.Pit.Side > 1 {
		return fmt.Errorf("%w: pit side must be 1 or -1", ErrMalformed)
	}
	for i, d := range s.Segments {
		if d.Length <= 0 || math.IsNaN(d.Length) || math.IsInf(d.Length, 0) {
			return fmt.Errorf("%w: segment %d has length %v", ErrMalformed, i, d.Length)
		}
		if d.Radius != 0 && d.Length > 2*math.Pi {
			return fmt.Errorf("%w: segment %d arc %v exceeds a full turn", ErrMalformed, i, d.Length)
		}
		if d.Radius > 0 && d.Radius <= s.Width {
			return fmt.Errorf("%w: left turn %d radius %v not wider than track", ErrMalformed, i, d.Radius)
		}
	}
	return nil
}

// NSEG is the number of segments.
func (t *Track) NSEG() int { return len(t.Right) }

// Next returns the index after i, wrapping at NSEG.
func (t *Track) Next(i int) int {
	if i+1 == len(t.Right) {
		return 0
	}
	return i + 1
}

// SegmentFeet is the center-line length of segment i.
func (t *Track) SegmentFeet(i int) float64 {
	if t.Right[i].Radius != 0 {
		return math.Abs(t.Left[i].Length * (t.Left[i].Radius + t.Right[i].Radius) / 2)
	}
	return t.Left[i].Length
}

// InnerRadius is the radius of the inside wall of segment i: the left wall
// on left turns and the right wall on right turns.
func (t *Track) InnerRadius(i int) float64 {
	r := t.Left[i].Radius
	if r < 0 {
		r = t.Right[i].Radius
	}
	return r
}

// LapsForMiles returns the lap count covering a race of the given length.
func (t *Track) LapsForMiles(miles float64) int {
	return int(miles*5280/t.Length) + 1
}

// ClosureGap is the distance between the end of the last right-wall segment
// and the start point. Well-formed tracks close to within a few feet.
func (t *Track) ClosureGap() float64 {
	last := t.Right[len(t.Right)-1]
	return math.Hypot(last.EndX-t.StartX, last.EndY-t.StartY)
}

func (t *Track) headingMismatch() float64 {
	d := math.Mod(t.Right[len(t.Right)-1].EndAng-t.StartAng, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return math.Min(d, 2*math.Pi-d)
}

// MidStart is the center of the start line.
func (t *Track) MidStart() (x, y, ang float64) {
	return (t.StartX + t.LeftStartX) / 2, (t.StartY + t.LeftStartY) / 2, t.StartAng
}

// Place returns the position and heading of a point at the given distance
// from the finish line, fromRight feet in from the right wall.
func (t *Track) Place(distance, fromRight float64) (x, y, ang float64, seg int) {
	n := t.NSEG()
	distance = math.Mod(distance, t.Length)
	if distance < 0 {
		distance += t.Length
	}

	// segment k+1 starts where segment k ends; segment 0 starts before the finish line
	seg = 0
	begin := t.SegDist[n-1] - t.Length
	for k := 0; k < n; k++ {
		if distance > t.SegDist[k] {
			seg = (k + 1) % n
			begin = t.SegDist[k]
		}
	}
	end := begin + t.SegmentFeet(seg)
	r, l := t.Right[seg], t.Left[seg]

	switch {
	case l.Radius > 0:
		toEnd := 2 * (end - distance) / (l.Radius + r.Radius)
		R := r.Radius - fromRight
		ang = r.EndAng - toEnd
		x = r.CenX + R*math.Sin(ang)
		y = r.CenY - R*math.Cos(ang)
	case l.Radius < 0:
		toEnd := -2 * (end - distance) / (l.Radius + r.Radius)
		R := math.Abs(r.Radius) + fromRight
		ang = r.EndAng + toEnd
		x = r.CenX - R*math.Sin(ang)
		y = r.CenY + R*math.Cos(ang)
	default:
		along := distance - begin
		ang = r.BegAng
		x = r.BegX + along*math.Cos(ang) - fromRight*math.Sin(ang)
		y = r.BegY + along*math.Sin(ang) + fromRight*math.Cos(ang)
	}
	return x, y, ang, seg
}

// GridSlot returns the starting position of grid slot i for a field laid out
// in StartRows columns behind the finish line.
func (t *Track) GridSlot(i int) (x, y, ang float64, seg int) {
	const gap = 1.5 * core.CarLength
	n := t.StartRows
	dist := t.Length - (float64(i/n)*gap + float64(i)*gap) - core.CarLength/2

	var w float64
	frac := t.Width * float64(i%n+1) / float64(n+1)
	if t.Left[t.Next(0)].Radius < 0 {
		w = frac
	} else {
		w = t.Width - frac
	}
	return t.Place(dist, w)
}
