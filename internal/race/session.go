package race

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/OCAP2/racesim/internal/sim"
	"github.com/OCAP2/racesim/pkg/core"
	"github.com/segmentio/ksuid"
)

// Practice runs a practice session from a freshly ordered grid. Contact
// costs no damage in practice.
func (o *Orchestrator) Practice(ctx context.Context) (*core.SessionResult, error) {
	order := o.startOrder(0)
	o.open(core.StagePractice, 0, order)
	o.arrange(order)
	return o.runNormal(ctx)
}

// Race runs race number index.
func (o *Orchestrator) Race(ctx context.Context, index int) (*core.SessionResult, error) {
	c := o.sim
	if o.opts.Sim.Laps <= 0 && o.opts.Miles > 0 {
		c.Opts.Laps = o.track.LapsForMiles(o.opts.Miles)
	}
	if index == 0 {
		c.Tracer = o.deps.Tracer
		c.Replayer = o.deps.Replayer
	}
	defer func() { c.Tracer, c.Replayer = nil, nil }()

	order := o.raceOrder(index)
	o.open(core.StageRacing, index, order)
	o.arrange(order)
	res, err := o.runNormal(ctx)
	if err != nil {
		return res, err
	}
	o.lastFinish = slices.Clone(c.Order)
	return res, nil
}

// Qualify runs qualifying session q: every car gets the track to itself in
// turn, starting from the middle of the start line.
func (o *Orchestrator) Qualify(ctx context.Context, q int) (*core.SessionResult, error) {
	c := o.sim
	if q == 0 {
		order := o.startOrder(q)
		c.SetOrder(order)
		for _, car := range c.Cars {
			car.QualBestLap, car.QualAvgSpeed = 0, 0
		}
		clear(o.dnq)
		o.qualOrder = nil
	}
	runOrder := slices.Clone(o.lastStart)
	o.open(core.StageQualifying, q, c.Order)

	x, y, ang := o.track.MidStart()
	var record core.LapRecord
	for pos, id := range runOrder {
		c.Begin(core.StageQualifying, c.Order)
		c.Record = record
		c.Active = id
		car := c.Cars[id]
		car.Place(x, y, ang, core.StageQualifying)
		car.Started = pos

		grace := qualifyingGraceTicks
		cancelled, err := o.loop(ctx, func() bool {
			if c.Finished > 0 || c.OutCount > 0 {
				grace--
				if grace < 0 {
					return true
				}
			}
			return c.ReplayFinished()
		})
		record = c.Record
		o.simTime += c.Elapsed
		o.ticks += c.Ticks
		if err != nil {
			return o.fail(err)
		}
		if cancelled {
			return o.close(true), nil
		}
	}
	c.Active = -1
	return o.close(false), nil
}

// closeQualifying ranks the qualifying results and marks every car slower
// than the leader by more than the cutoff as not qualified. The grid for the
// races is the qualifying order.
func (o *Orchestrator) closeQualifying() {
	c := o.sim
	c.QualifyingSort()
	best := c.QualifyingMetric(c.Leader())
	for _, id := range c.Order {
		if c.QualifyingMetric(c.Cars[id]) < best/core.QualifyingCutoff {
			o.dnq[id] = true
			o.log.Info("did not qualify", "driver", o.names[id])
		}
	}
	o.qualOrder = slices.Clone(c.Order)
}

// runNormal ticks a practice or race session until everyone is finished or
// out, the leader is a lap past the finish, or the replay runs dry.
func (o *Orchestrator) runNormal(ctx context.Context) (*core.SessionResult, error) {
	c := o.sim
	grace := raceGraceTicks
	cancelled, err := o.loop(ctx, func() bool {
		if c.Finished+c.OutCount >= len(c.Cars) {
			grace--
			if grace < 0 {
				return true
			}
		}
		if c.Leader().Laps >= c.StageLaps()+1 {
			return true
		}
		return c.ReplayFinished()
	})
	o.simTime += c.Elapsed
	o.ticks += c.Ticks
	if err != nil {
		return o.fail(err)
	}
	return o.close(cancelled), nil
}

// loop ticks until done reports true. Cancellation is checked once per tick,
// before the pipeline runs.
func (o *Orchestrator) loop(ctx context.Context, done func() bool) (cancelled bool, err error) {
	c := o.sim
	every := o.opts.SampleEvery
	for {
		if ctx.Err() != nil {
			return true, nil
		}
		if err := c.Tick(); err != nil {
			return false, err
		}
		if every > 0 && c.Ticks%every == 0 {
			o.bridge.sample()
			o.publish()
		}
		if done() {
			return false, nil
		}
	}
}

// open starts a new session record and announces it.
func (o *Orchestrator) open(stage core.Stage, index int, order []int) {
	c := o.sim
	c.Begin(stage, order)
	o.simTime, o.ticks = 0, 0
	clear(o.bridge.pitTime)

	o.session = &core.Session{
		ID:          ksuid.New().String(),
		Stage:       stage,
		Index:       index,
		Track:       o.track.Name,
		TrackLength: o.track.Length,
		TrackWidth:  o.track.Width,
		Segments:    o.track.NSEG(),
		Outline:     o.opts.Outline,
		Tag:         o.opts.Tag,
		Laps:        c.StageLaps(),
		Drivers:     slices.Clone(o.names),
		DeltaTime:   c.Opts.DeltaTime,
		Seed:        c.Rand.InitialSeed(),
		StartTime:   time.Now().UTC(),
	}
	o.deps.Sink.SessionStarted(o.session)
	o.publish()
	o.log.Info("session started",
		"session", o.session.ID, "stage", stage.String(), "index", index, "laps", o.session.Laps)
}

// close builds the session result, folds the session's best lap into the
// track record and announces the end.
func (o *Orchestrator) close(cancelled bool) *core.SessionResult {
	c := o.sim
	if c.Record.Speed > o.record.Speed {
		o.record = c.Record
	}
	res := o.result(cancelled)
	o.deps.Sink.SessionEnded(res)
	o.publish()
	o.log.Info("session ended",
		"session", res.SessionID, "stage", res.Stage.String(), "ticks", res.Ticks,
		"simTime", res.SimTime, "cancelled", cancelled)
	return res
}

func (o *Orchestrator) fail(err error) (*core.SessionResult, error) {
	o.log.Error("session aborted", "session", o.session.ID, "error", err)
	return nil, fmt.Errorf("%s session %d: %w", o.session.Stage, o.session.Index, err)
}

// arrange puts the cars on the grid in the given order. Cars that did not
// qualify are reset where they stand, stay off the grid and count as out.
func (o *Orchestrator) arrange(order []int) {
	c := o.sim
	slot := 0
	for pos, id := range order {
		car := c.Cars[id]
		if o.dnq[id] {
			car.Place(car.X, car.Y, car.Ang, c.Stage)
			car.XDot, car.YDot = 0, 0
			car.Starting = false
			car.Out = sim.DidNotQualify
			car.Distance = -float64(pos)
			car.Started = pos
			c.OutCount++
			continue
		}
		x, y, ang, seg := o.track.GridSlot(slot)
		car.Place(x, y, ang, c.Stage)
		car.SegID = seg
		car.Started = pos
		slot++
	}
}
