package sim

import (
	"math"

	"github.com/OCAP2/racesim/pkg/core"
)

// Tick runs the pipeline once for every car on track. Every car is observed
// before any driver runs. The only error is a failing driver.
func (c *Context) Tick() error {
	c.posBefore = append(c.posBefore[:0], c.PosOf...)
	for _, car := range c.Cars {
		if c.onTrack(car) {
			c.observe(car)
		}
	}

	if c.Replayer != nil {
		c.replay()
	} else if err := c.simulate(); err != nil {
		return err
	}

	for _, car := range c.Cars {
		if car.CollisionFlash > 0 {
			car.CollisionFlash--
		}
	}
	c.Elapsed += c.Opts.DeltaTime
	c.Ticks++

	// qualifying order only changes on line crossings
	if c.Stage != core.StageQualifying {
		c.Sortem()
	}
	for id, pos := range c.PosOf {
		if pos != c.posBefore[id] {
			c.Listener.PositionChanged(c.Cars[id], c.posBefore[id], pos)
		}
	}
	return nil
}

func (c *Context) simulate() error {
	for _, car := range c.Cars {
		if !c.onTrack(car) {
			continue
		}
		c.checkNearby(car)
		car.pitBefore = car.PitState()
		if err := c.control(car); err != nil {
			return err
		}
	}
	for _, car := range c.Cars {
		if !c.onTrack(car) {
			continue
		}
		c.moveCar(car)
		if now := car.PitState(); now != car.pitBefore {
			c.Listener.PitStateChanged(car, car.pitBefore, now)
		}
	}
	for _, car := range c.Cars {
		if c.onTrack(car) {
			c.checkCollisions(car)
		}
	}
	if c.Tracer != nil {
		c.Tracer.Trace(c.Ticks, c.Cars)
	}
	return nil
}

// replay moves the cars to their recorded positions and derives velocities
// from the displacement so the observer can time line crossings.
func (c *Context) replay() {
	dt := c.Opts.DeltaTime
	type pos struct{ x, y float64 }
	prev := make([]pos, len(c.Cars))
	for i, car := range c.Cars {
		prev[i] = pos{car.X, car.Y}
		car.Starting = false
	}
	if !c.Replayer.Replay(c.Ticks, c.Cars) {
		c.replayDone = true
		return
	}
	for i, car := range c.Cars {
		car.XDot = (car.X - prev[i].x) / dt
		car.YDot = (car.Y - prev[i].y) / dt
		car.SpeedMax = max(car.SpeedMax, math.Hypot(car.XDot, car.YDot))
	}
}
