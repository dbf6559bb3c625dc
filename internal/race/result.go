package race

import (
	"slices"

	"github.com/OCAP2/racesim/internal/sim"
	"github.com/OCAP2/racesim/pkg/core"
)

// result collects the session's car lines in running order.
func (o *Orchestrator) result(cancelled bool) *core.SessionResult {
	c := o.sim
	res := &core.SessionResult{
		SessionID: o.session.ID,
		Stage:     o.session.Stage,
		Index:     o.session.Index,
		Track:     o.track.Name,
		SimTime:   o.simTime,
		Ticks:     o.ticks,
		Cancelled: cancelled,
		Record:    c.Record,
		Cars:      make([]core.CarResult, 0, len(c.Cars)),
	}
	for pos, id := range c.Order {
		car := c.Cars[id]
		res.Cars = append(res.Cars, core.CarResult{
			Car:          id,
			Driver:       o.names[id],
			Finish:       pos,
			Started:      car.Started,
			Laps:         max(car.Laps, 0),
			LapsLed:      car.LapsLed,
			AvgSpeed:     car.SpeedAvg,
			BestLapSpeed: car.BestLapSpeed,
			LastLapSpeed: car.LastLapSpeed,
			MaxSpeed:     car.SpeedMax,
			Damage:       car.Damage,
			Fuel:         car.Fuel,
			PitStops:     car.PitStops,
			PitTime:      car.TotalPitTime,
			PitLaps:      slices.Clone(car.PitLaps),
			Done:         car.Done,
			Out:          car.Out == sim.Retired,
			DNQ:          car.Out == sim.DidNotQualify,
			QualBestLap:  car.QualBestLap,
			QualAvgSpeed: car.QualAvgSpeed,
			BehindLeader: car.BehindLeader,
			LastCrossing: car.LastCrossing,
			RobotTime:    car.RobotTime,
			LapTimes:     slices.Clone(car.LapTimes),
		})
	}
	return res
}
