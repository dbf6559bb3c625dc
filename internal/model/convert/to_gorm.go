// Package convert provides functions to convert core events into GORM models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/racesim/internal/geo"
	"github.com/OCAP2/racesim/internal/model"
	"github.com/OCAP2/racesim/pkg/core"
	"gorm.io/datatypes"
)

// floatsToJSON converts a []float64 to datatypes.JSON for DB storage.
func floatsToJSON(v []float64) datatypes.JSON {
	if len(v) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(v)
	return datatypes.JSON(data)
}

// CoreToTrack converts the track fields of a core.Session to a GORM model.Track.
func CoreToTrack(s core.Session) model.Track {
	return model.Track{
		Name:     s.Track,
		Length:   s.TrackLength,
		Width:    s.TrackWidth,
		Segments: s.Segments,
		Outline:  s.Outline,
	}
}

// CoreToSession converts a core.Session to a GORM model.Session and its car entries.
// config is stored as-is in Session.Config.
func CoreToSession(s core.Session, config any) model.Session {
	cfg := datatypes.JSON("{}")
	if config != nil {
		if data, err := json.Marshal(config); err == nil {
			cfg = data
		}
	}

	cars := make([]model.CarEntry, len(s.Drivers))
	for i, name := range s.Drivers {
		cars[i] = model.CarEntry{SessionID: s.ID, Car: i, Driver: name}
	}

	return model.Session{
		ID:        s.ID,
		Stage:     s.Stage.String(),
		Index:     s.Index,
		Laps:      s.Laps,
		DeltaTime: s.DeltaTime,
		Seed:      s.Seed,
		Tag:       s.Tag,
		StartTime: s.StartTime,
		Config:    cfg,
		Cars:      cars,
	}
}

// CoreToLap converts a core.LapEvent to a GORM model.Lap.
func CoreToLap(e core.LapEvent) model.Lap {
	return model.Lap{
		SessionID:   e.SessionID,
		Car:         e.Car,
		Driver:      e.Driver,
		Lap:         e.Lap,
		Time:        e.Time,
		LapTime:     e.LapTime,
		LapSpeed:    e.LapSpeed,
		Position:    e.Position,
		Fuel:        e.Fuel,
		FuelMileage: e.FuelMileage,
		Damage:      e.Damage,
		NewRecord:   e.NewRecord,
	}
}

// CoreToPitStop converts a core.PitEvent to a GORM model.PitStop.
func CoreToPitStop(e core.PitEvent) model.PitStop {
	return model.PitStop{
		SessionID: e.SessionID,
		Car:       e.Car,
		Driver:    e.Driver,
		Lap:       e.Lap,
		Time:      e.Time,
		State:     e.State.String(),
		Repair:    e.Repair,
		Fuel:      e.Fuel,
		Duration:  e.Duration,
	}
}

// CoreToCollisionEvent converts a core.CollisionEvent to a GORM model.CollisionEvent.
func CoreToCollisionEvent(e core.CollisionEvent) model.CollisionEvent {
	return model.CollisionEvent{
		SessionID:   e.SessionID,
		Time:        e.Time,
		Car:         e.Car,
		Other:       e.Other,
		Damage:      e.Damage,
		OtherDamage: e.OtherDamage,
		Overlap:     e.Overlap,
		Position:    geo.Point(e.X, e.Y),
	}
}

// CoreToRetirement converts a core.RetireEvent to a GORM model.Retirement.
func CoreToRetirement(e core.RetireEvent) model.Retirement {
	return model.Retirement{
		SessionID: e.SessionID,
		Time:      e.Time,
		Car:       e.Car,
		Driver:    e.Driver,
		Lap:       e.Lap,
		Reason:    e.Reason,
	}
}

// CoreToCarSample converts a core.CarSample to a GORM model.CarSample.
func CoreToCarSample(s core.CarSample) model.CarSample {
	return model.CarSample{
		SessionID: s.SessionID,
		Time:      s.Time,
		Car:       s.Car,
		Position:  geo.Point(s.X, s.Y),
		Heading:   s.Heading,
		Speed:     s.Speed,
		Lap:       s.Lap,
		Distance:  s.Distance,
		Fuel:      s.Fuel,
		Damage:    s.Damage,
		Place:     s.Position,
	}
}

// CoreToResults converts the car lines of a core.SessionResult to GORM model.Results.
func CoreToResults(r core.SessionResult) []model.Result {
	out := make([]model.Result, len(r.Cars))
	for i, c := range r.Cars {
		out[i] = model.Result{
			SessionID:    r.SessionID,
			Car:          c.Car,
			Driver:       c.Driver,
			Finish:       c.Finish,
			Started:      c.Started,
			Laps:         c.Laps,
			LapsLed:      c.LapsLed,
			AvgSpeed:     c.AvgSpeed,
			BestLapSpeed: c.BestLapSpeed,
			MaxSpeed:     c.MaxSpeed,
			Damage:       c.Damage,
			Fuel:         c.Fuel,
			PitStops:     c.PitStops,
			PitTime:      c.PitTime,
			BehindLeader: c.BehindLeader,
			Done:         c.Done,
			Out:          c.Out,
			DNQ:          c.DNQ,
			Points:       c.Points,
			RobotTimeMs:  c.RobotTime.Milliseconds(),
			LapTimes:     floatsToJSON(c.LapTimes),
		}
	}
	return out
}
