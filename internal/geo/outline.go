package geo

import (
	"math"

	"github.com/OCAP2/racesim/internal/track"
	geom "github.com/peterstace/simplefeatures/geom"
)

// OutlineStep is the default spacing of outline vertices in feet.
const OutlineStep = 25.0

// Line samples a closed line running fromRight feet in from the right wall.
// The last vertex repeats the first.
func Line(t *track.Track, fromRight, step float64) geom.LineString {
	if step <= 0 {
		step = OutlineStep
	}
	n := int(math.Ceil(t.Length / step))
	flat := make([]float64, 0, 2*(n+1))
	for i := 0; i < n; i++ {
		x, y, _, _ := t.Place(float64(i)*t.Length/float64(n), fromRight)
		flat = append(flat, x, y)
	}
	flat = append(flat, flat[0], flat[1])
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// Outline returns the right wall, left wall and center line of t, projected
// to lon/lat when p is not nil.
func Outline(t *track.Track, step float64, p *Projector) geom.MultiLineString {
	lines := []geom.LineString{
		Line(t, 0, step),
		Line(t, t.Width, step),
		Line(t, t.Width/2, step),
	}
	if p != nil {
		for i := range lines {
			lines[i] = p.Project(lines[i])
		}
	}
	return geom.NewMultiLineString(lines)
}

// OutlineWKT is Outline at the default step, as WKT.
func OutlineWKT(t *track.Track, p *Projector) string {
	return Outline(t, OutlineStep, p).AsText()
}
