package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Track geometry is kept in track feet. Exports anchored at a real-world
// location are projected through EPSG:3857 so the offsets stay metric, then
// converted to EPSG:4326 lon/lat.

// FeetToMeters converts track units to meters.
const FeetToMeters = 0.3048

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Point builds a 2D point in track feet.
func Point(x, y float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
}

// Anchor pins the track origin to a longitude and latitude.
type Anchor struct {
	Longitude float64
	Latitude  float64
}

// ParseAnchor parses "long,lat" into an Anchor. An empty string yields a
// zero Anchor and ok false.
func ParseAnchor(coords string) (a Anchor, ok bool, err error) {
	if strings.TrimSpace(coords) == "" {
		return Anchor{}, false, nil
	}
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return Anchor{}, false, ErrInvalidCoordinates
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return Anchor{}, false, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return Anchor{}, false, ErrInvalidCoordinates
	}
	if math.Abs(long) > 180 || math.Abs(lat) > 85 {
		return Anchor{}, false, ErrInvalidCoordinates
	}
	return Anchor{Longitude: long, Latitude: lat}, true, nil
}

// Coords3857From4326 creates a web mercator point from a longitude and latitude
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		},
	)
	return point, nil
}

// Projector maps track feet onto lon/lat around an Anchor.
type Projector struct {
	originX, originY float64
	inverse          func(a, b, c float64) (float64, float64, float64)
}

// NewProjector returns a Projector placing the track origin at a.
func NewProjector(a Anchor) (*Projector, error) {
	origin, err := Coords3857From4326(a.Longitude, a.Latitude)
	if err != nil {
		return nil, err
	}
	c, ok := origin.Coordinates()
	if !ok {
		return nil, ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	return &Projector{
		originX: c.X,
		originY: c.Y,
		inverse: epsg.Transform(3857, 4326),
	}, nil
}

// LonLat returns the longitude and latitude of a track position.
func (p *Projector) LonLat(x, y float64) (lon, lat float64) {
	lon, lat, _ = p.inverse(p.originX+x*FeetToMeters, p.originY+y*FeetToMeters, 0)
	return lon, lat
}

// Project converts every vertex of ls to lon/lat.
func (p *Projector) Project(ls geom.LineString) geom.LineString {
	seq := ls.Coordinates()
	n := seq.Length()
	flat := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		lon, lat := p.LonLat(xy.X, xy.Y)
		flat = append(flat, lon, lat)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}
