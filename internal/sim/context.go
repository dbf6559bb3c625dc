// Package sim holds the vehicle arena and runs the per-tick pipeline:
// observe, sense nearby cars, drive, integrate, collide, rank.
package sim

import (
	"errors"

	"github.com/OCAP2/racesim/internal/physics"
	"github.com/OCAP2/racesim/internal/rng"
	"github.com/OCAP2/racesim/internal/track"
	"github.com/OCAP2/racesim/pkg/core"
)

// ErrDriverFailed wraps a panic raised by a driver policy.
var ErrDriverFailed = errors.New("driver failed")

// Options are the session-wide simulation switches.
type Options struct {
	DeltaTime      float64
	Model          physics.Model
	RandomMotion   bool
	SideVision     bool // global switch; drivers opt in through Situation.SideVision
	Laps           int
	PracticeLaps   int
	QualifyingLaps int
	QualifyingMode core.QualifyingMode
}

// DefaultOptions returns the stock timestep on a hard surface.
func DefaultOptions() Options {
	return Options{
		DeltaTime:    core.DefaultDeltaTime,
		Model:        physics.NewModel(physics.SurfaceHard),
		RandomMotion: true,
		Laps:         10,
	}
}

// Listener receives the notable things that happen during a tick. Calls are
// made synchronously from the tick loop and must not block.
type Listener interface {
	LapCompleted(car *Car, newRecord bool)
	PitStateChanged(car *Car, from, to core.PitState)
	Collided(car, other *Car, damage, otherDamage int, overlap float64)
	Retired(car *Car, reason string)
	PositionChanged(car *Car, from, to int)
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) LapCompleted(*Car, bool)                            {}
func (NopListener) PitStateChanged(*Car, core.PitState, core.PitState) {}
func (NopListener) Collided(*Car, *Car, int, int, float64)             {}
func (NopListener) Retired(*Car, string)                               {}
func (NopListener) PositionChanged(*Car, int, int)                     {}

// Tracer is handed the arena after every simulated tick.
type Tracer interface {
	Trace(tick int, cars []*Car)
}

// Replayer stands in for the integrator: it moves every car to its recorded
// position for the tick. It returns false once the recording is exhausted.
type Replayer interface {
	Replay(tick int, cars []*Car) bool
}

// Context is the complete mutable state of a session. It is not safe for
// concurrent use.
type Context struct {
	Track    *track.Track
	Rand     *rng.Source
	Cars     []*Car
	Opts     Options
	Listener Listener
	Tracer   Tracer
	Replayer Replayer

	Stage     core.Stage
	Elapsed   float64
	Ticks     int
	Order     []int // car IDs by position
	PosOf     []int // position by car ID
	LapFinish [][]float64
	Finished  int
	OutCount  int
	Record    core.LapRecord

	// Active restricts the pipeline to one car, as in qualifying. -1 means all.
	Active int

	replayDone bool
	posBefore  []int
}

// New builds an arena with one car per driver, in driver order.
func New(t *track.Track, src *rng.Source, drivers []core.Driver, opts Options) *Context {
	if opts.DeltaTime <= 0 {
		opts.DeltaTime = core.DefaultDeltaTime
	}
	c := &Context{
		Track:    t,
		Rand:     src,
		Opts:     opts,
		Listener: NopListener{},
		Active:   -1,
		Cars:     make([]*Car, len(drivers)),
		Order:    make([]int, len(drivers)),
		PosOf:    make([]int, len(drivers)),
	}
	for i, d := range drivers {
		c.Cars[i] = newCar(i, d, src.External)
		c.Order[i] = i
		c.PosOf[i] = i
	}
	return c
}

// Begin resets the per-session counters for a new stage and sets the running
// order. Car placement is left to the caller.
func (c *Context) Begin(stage core.Stage, order []int) {
	c.Stage = stage
	c.Elapsed = 0
	c.Ticks = 0
	c.Finished = 0
	c.OutCount = 0
	c.Active = -1
	c.replayDone = false
	c.Record = core.LapRecord{}
	c.SetOrder(order)

	c.LapFinish = nil
	if stage == core.StageRacing {
		c.LapFinish = make([][]float64, len(c.Cars))
		for i := range c.LapFinish {
			c.LapFinish[i] = make([]float64, c.Opts.Laps+2)
		}
	}
}

// SetOrder replaces the running order and rebuilds its inverse.
func (c *Context) SetOrder(order []int) {
	copy(c.Order, order)
	for pos, id := range c.Order {
		c.PosOf[id] = pos
	}
}

// Leader is the car in first position.
func (c *Context) Leader() *Car { return c.Cars[c.Order[0]] }

// ReplayFinished reports whether the replay source ran out of data.
func (c *Context) ReplayFinished() bool { return c.replayDone }

// onTrack reports whether car takes part in this tick.
func (c *Context) onTrack(car *Car) bool {
	return c.Active < 0 || car.ID == c.Active
}

// StageLaps is the lap count that ends the current stage.
func (c *Context) StageLaps() int {
	switch c.Stage {
	case core.StageQualifying:
		return c.Opts.QualifyingLaps
	case core.StagePractice:
		return c.Opts.PracticeLaps
	default:
		return c.Opts.Laps
	}
}
