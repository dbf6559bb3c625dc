package race

import (
	"github.com/OCAP2/racesim/internal/sim"
	"github.com/OCAP2/racesim/pkg/core"
)

// Sink receives session telemetry. Calls come from the tick loop and must
// not block.
type Sink interface {
	SessionStarted(s *core.Session)
	SessionEnded(r *core.SessionResult)
	CarMoved(e *core.CarSample)
	LapCompleted(e *core.LapEvent)
	PositionChanged(e *core.PositionEvent)
	Collision(e *core.CollisionEvent)
	PitStateChanged(e *core.PitEvent)
	CarRetired(e *core.RetireEvent)
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) SessionStarted(*core.Session)        {}
func (NopSink) SessionEnded(*core.SessionResult)    {}
func (NopSink) CarMoved(*core.CarSample)            {}
func (NopSink) LapCompleted(*core.LapEvent)         {}
func (NopSink) PositionChanged(*core.PositionEvent) {}
func (NopSink) Collision(*core.CollisionEvent)      {}
func (NopSink) PitStateChanged(*core.PitEvent)      {}
func (NopSink) CarRetired(*core.RetireEvent)        {}

// bridge turns arena callbacks into session events.
type bridge struct {
	o       *Orchestrator
	pitTime []float64 // pit time already reported per car
}

func (b *bridge) id() string { return b.o.session.ID }

func (b *bridge) now() float64 { return b.o.sim.Elapsed }

func (b *bridge) LapCompleted(car *sim.Car, newRecord bool) {
	b.o.deps.Sink.LapCompleted(&core.LapEvent{
		SessionID:   b.id(),
		Stage:       b.o.sim.Stage,
		Car:         car.ID,
		Driver:      b.o.names[car.ID],
		Lap:         car.Laps,
		Time:        car.LastCrossing,
		LapTime:     car.LapTime,
		LapSpeed:    car.LastLapSpeed,
		Position:    b.o.sim.PosOf[car.ID],
		Fuel:        car.Fuel,
		FuelMileage: car.FuelMileage,
		Damage:      car.Damage,
		NewRecord:   newRecord,
	})
	if newRecord {
		b.o.log.Debug("lap record", "driver", b.o.names[car.ID], "speed", car.LastLapSpeed)
	}
}

func (b *bridge) PitStateChanged(car *sim.Car, _, to core.PitState) {
	e := &core.PitEvent{
		SessionID: b.id(),
		Car:       car.ID,
		Driver:    b.o.names[car.ID],
		Lap:       car.Laps,
		Time:      b.now(),
		State:     to,
		Repair:    car.RepairAmount,
		Fuel:      car.FuelAmount,
	}
	if to == core.PitStopped {
		e.Duration = car.TotalPitTime - b.pitTime[car.ID]
		b.pitTime[car.ID] = car.TotalPitTime
	}
	b.o.deps.Sink.PitStateChanged(e)
}

func (b *bridge) Collided(car, other *sim.Car, damage, otherDamage int, overlap float64) {
	b.o.deps.Sink.Collision(&core.CollisionEvent{
		SessionID:   b.id(),
		Time:        b.now(),
		Car:         car.ID,
		Other:       other.ID,
		Damage:      damage,
		OtherDamage: otherDamage,
		Overlap:     overlap,
		X:           car.X,
		Y:           car.Y,
	})
}

func (b *bridge) Retired(car *sim.Car, reason string) {
	b.o.log.Info("car out", "driver", b.o.names[car.ID], "lap", car.Laps, "reason", reason)
	b.o.deps.Sink.CarRetired(&core.RetireEvent{
		SessionID: b.id(),
		Time:      b.now(),
		Car:       car.ID,
		Driver:    b.o.names[car.ID],
		Lap:       car.Laps,
		Reason:    reason,
	})
}

func (b *bridge) PositionChanged(car *sim.Car, from, to int) {
	b.o.deps.Sink.PositionChanged(&core.PositionEvent{
		SessionID: b.id(),
		Time:      b.now(),
		Car:       car.ID,
		From:      from,
		To:        to,
	})
}

// sample reports the state of every car on track.
func (b *bridge) sample() {
	c := b.o.sim
	for _, car := range c.Cars {
		if car.Out != sim.Running && car.Out != sim.InPit {
			continue
		}
		if c.Active >= 0 && car.ID != c.Active {
			continue
		}
		b.o.deps.Sink.CarMoved(&core.CarSample{
			SessionID: b.id(),
			Time:      c.Elapsed,
			Car:       car.ID,
			X:         car.X,
			Y:         car.Y,
			Heading:   car.Heading(),
			Speed:     car.Speed(),
			Lap:       car.Laps,
			Distance:  car.Distance,
			Fuel:      car.Fuel,
			Damage:    car.Damage,
			Position:  c.PosOf[car.ID],
		})
	}
}
