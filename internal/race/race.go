// Package race sequences practice, qualifying and race sessions over a
// sim.Context and reports what happens to a Sink.
package race

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/OCAP2/racesim/internal/rng"
	"github.com/OCAP2/racesim/internal/sim"
	"github.com/OCAP2/racesim/internal/track"
	"github.com/OCAP2/racesim/pkg/core"
)

var (
	// ErrNoCars is returned when a session is requested without drivers.
	ErrNoCars = errors.New("zero cars were requested")
	// ErrDriverFailed wraps a panic raised by a driver policy.
	ErrDriverFailed = sim.ErrDriverFailed
)

// Ticks a session keeps running once it is decided, so the last cars can
// cross the line and pull off.
const (
	raceGraceTicks       = 50
	qualifyingGraceTicks = 220
)

// StartOrder selects how the grid is filled when qualifying did not run.
type StartOrder int

const (
	StartRandom StartOrder = iota
	StartKeep
	StartReverse
)

// ParseStartOrder accepts "random", "keep" or "reverse".
func ParseStartOrder(s string) (StartOrder, error) {
	switch s {
	case "", "random":
		return StartRandom, nil
	case "keep":
		return StartKeep, nil
	case "reverse":
		return StartReverse, nil
	}
	return StartRandom, fmt.Errorf("unknown start order %q", s)
}

func (s StartOrder) String() string {
	switch s {
	case StartKeep:
		return "keep"
	case StartReverse:
		return "reverse"
	default:
		return "random"
	}
}

// Options configure a season: an optional practice, optional qualifying and
// one or more races.
type Options struct {
	Sim                sim.Options
	Seed               uint32
	Miles              float64 // race length when Sim.Laps is 0
	Races              int
	QualifyingSessions int
	StartOrder         StartOrder
	SampleEvery        int // ticks between CarMoved samples, 0 disables them
	Tag                string
	Outline            string // WKT of the track walls, passed through to sessions
}

// DefaultOptions is a single ten lap race.
func DefaultOptions() Options {
	return Options{
		Sim:                sim.DefaultOptions(),
		Seed:               1,
		Races:              1,
		QualifyingSessions: 1,
		SampleEvery:        9,
	}
}

// Dependencies are the collaborators of an Orchestrator. Every field is
// optional.
type Dependencies struct {
	Sink     Sink
	Logger   *slog.Logger
	Tracer   sim.Tracer   // records the first race
	Replayer sim.Replayer // replaces the integrator in the first race
}

// Status is a snapshot of the running session, safe to read from another
// goroutine.
type Status struct {
	SessionID string
	Stage     core.Stage
	Index     int
	Tick      int
	SimTime   float64
	Leader    string
	Running   int
	Out       int
}

// Orchestrator owns the arena and runs sessions on it one after the other.
// It is not safe for concurrent use, except for Status.
type Orchestrator struct {
	track *track.Track
	opts  Options
	deps  Dependencies
	log   *slog.Logger
	sim   *sim.Context
	names []string

	session *core.Session
	bridge  *bridge
	simTime float64
	ticks   int

	record     core.LapRecord
	dnq        []bool
	qualOrder  []int
	lastStart  []int
	lastFinish []int

	status atomic.Pointer[Status]
}

// New builds an orchestrator with one car per driver.
func New(t *track.Track, drivers []core.Driver, opts Options, deps Dependencies) (*Orchestrator, error) {
	if len(drivers) == 0 {
		return nil, ErrNoCars
	}
	if t == nil {
		return nil, fmt.Errorf("%w: no track", track.ErrMalformed)
	}
	if deps.Sink == nil {
		deps.Sink = NopSink{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Races < 1 {
		opts.Races = 1
	}
	if opts.QualifyingSessions < 1 {
		opts.QualifyingSessions = 1
	}

	o := &Orchestrator{
		track: t,
		opts:  opts,
		deps:  deps,
		log:   deps.Logger,
		sim:   sim.New(t, rng.New(opts.Seed), drivers, opts.Sim),
		dnq:   make([]bool, len(drivers)),
	}
	for _, d := range drivers {
		o.names = append(o.names, d.Name())
	}
	o.bridge = &bridge{o: o, pitTime: make([]float64, len(drivers))}
	o.sim.Listener = o.bridge
	o.status.Store(&Status{})
	return o, nil
}

// Arena exposes the simulation state.
func (o *Orchestrator) Arena() *sim.Context { return o.sim }

// Record is the best lap seen on the track in any session so far.
func (o *Orchestrator) Record() core.LapRecord { return o.record }

// Status returns the latest published snapshot.
func (o *Orchestrator) Status() Status { return *o.status.Load() }

// Qualified reports whether qualifying has run and set the grid.
func (o *Orchestrator) Qualified() bool { return o.qualOrder != nil }

// Run plays the whole season: practice when practice laps are set, every
// qualifying session when qualifying laps are set, then the races. A
// cancelled context ends the current session early and skips the rest;
// results gathered so far are returned without error.
func (o *Orchestrator) Run(ctx context.Context) ([]*core.SessionResult, error) {
	var out []*core.SessionResult
	keep := func(r *core.SessionResult, err error) bool {
		if r != nil {
			out = append(out, r)
		}
		return err == nil && !r.Cancelled
	}

	if o.opts.Sim.PracticeLaps > 0 {
		r, err := o.Practice(ctx)
		if !keep(r, err) {
			return out, err
		}
	}
	if o.opts.Sim.QualifyingLaps > 0 {
		for q := range o.opts.QualifyingSessions {
			r, err := o.Qualify(ctx, q)
			if !keep(r, err) {
				return out, err
			}
		}
		o.closeQualifying()
	}
	for i := range o.opts.Races {
		r, err := o.Race(ctx, i)
		if !keep(r, err) {
			return out, err
		}
	}
	return out, nil
}

func (o *Orchestrator) publish() {
	c := o.sim
	st := &Status{
		Stage:   c.Stage,
		Tick:    o.ticks + c.Ticks,
		SimTime: o.simTime + c.Elapsed,
		Out:     c.OutCount,
	}
	if o.session != nil {
		st.SessionID = o.session.ID
		st.Index = o.session.Index
	}
	if len(c.Order) > 0 {
		st.Leader = c.Leader().Driver.Name()
	}
	for _, car := range c.Cars {
		if car.Out == sim.Running || car.Out == sim.InPit {
			st.Running++
		}
	}
	o.status.Store(st)
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func reversed(order []int) []int {
	r := slices.Clone(order)
	slices.Reverse(r)
	return r
}
