package movie

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sync"

	"github.com/OCAP2/racesim/internal/sim"
	"github.com/OCAP2/racesim/pkg/core"
)

// Recorder is a sim.Tracer that keeps the movie in memory until it is saved.
type Recorder struct {
	mu     sync.Mutex
	header Header
	xy     []byte
	ang    []byte
	trails []trail
	ticks  int
}

// trail is the reconstructed position the next delta is taken from.
type trail struct {
	n    int
	x, y float64
}

// NewRecorder starts an empty movie of a race on the named track.
func NewRecorder(trackName string, dt float64) *Recorder {
	if dt <= 0 {
		dt = core.DefaultDeltaTime
	}
	return &Recorder{header: Header{
		Track:     trackName,
		Stage:     core.StageRacing.String(),
		DeltaTime: dt,
	}}
}

// Trace samples the arena. The first call fixes the cast and the grid.
func (r *Recorder) Trace(tick int, cars []*sim.Car) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.trails == nil {
		r.begin(cars)
	}
	r.ticks = tick + 1
	if tick%sampleTicks != 0 {
		return
	}
	for i := range r.trails {
		r.sample(&r.trails[i], cars[i])
	}
}

func (r *Recorder) begin(cars []*sim.Car) {
	n := len(cars)
	r.trails = make([]trail, n)
	r.header.Drivers = make([]string, n)
	r.header.StartOrder = make([]int, n)
	for i := range r.header.StartOrder {
		r.header.StartOrder[i] = -1
	}
	for i, car := range cars {
		r.header.Drivers[i] = car.Driver.Name()
		if car.Started >= 0 && car.Started < n {
			r.header.StartOrder[car.Started] = car.ID
		}
	}
	if slices.Contains(r.header.StartOrder, -1) {
		r.header.StartOrder = nil
	}
}

func (r *Recorder) sample(t *trail, car *sim.Car) {
	heading := int(math.Round(wrapAngle(car.Heading()) / angleScale))
	r.ang = append(r.ang, byte(int8(heading)))

	if t.n%fullEvery == 0 {
		x, y := clamp16(car.X), clamp16(car.Y)
		r.xy = binary.BigEndian.AppendUint16(r.xy, uint16(x))
		r.xy = binary.BigEndian.AppendUint16(r.xy, uint16(y))
		t.x, t.y = float64(x), float64(y)
	} else {
		dx, dy := clamp8(car.X-t.x), clamp8(car.Y-t.y)
		r.xy = append(r.xy, byte(dx), byte(dy))
		t.x += float64(dx)
		t.y += float64(dy)
	}
	t.n++
}

// Header returns the movie header as far as it is known.
func (r *Recorder) Header() Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

// Ticks is the number of ticks traced so far.
func (r *Recorder) Ticks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

// Encode writes the movie to w.
func (r *Recorder) Encode(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trails == nil {
		return fmt.Errorf("movie: nothing recorded")
	}
	return encode(w, r.header, r.xy, r.ang)
}

// Save writes the movie to path.
func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create movie file: %w", err)
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write movie: %w", err)
	}
	return f.Close()
}

func clamp16(v float64) int16 {
	return int16(max(math.MinInt16, min(math.MaxInt16, math.Round(v))))
}

// deltas larger than a byte are carried over into the next sample
func clamp8(v float64) int8 {
	return int8(max(-127, min(127, math.Round(v))))
}
