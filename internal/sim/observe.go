package sim

import (
	"math"

	"github.com/OCAP2/racesim/pkg/core"
)

// observe fills the car's Situation from its global state and the track, and
// runs the lap bookkeeping when the finish line is crossed.
func (c *Context) observe(car *Car) {
	if car.Out != Running {
		return
	}
	t := c.Track
	s := &car.sit

	s.V = car.Speed()
	s.DeadAhead = car.DeadAhead
	s.PowerReq = car.PowerReq
	s.Power = car.Power
	s.Fuel = car.Fuel
	s.Damage = car.Damage
	s.CenA = car.CenA
	s.TanA = car.TanA
	s.Alpha = car.Alpha
	s.Vc = car.Vc
	s.StartTime = car.StartTime
	s.LapFlag = false
	s.TimeCount = c.Elapsed
	s.Stage = c.Stage
	s.Position = c.PosOf[car.ID]
	s.Started = car.Started
	s.MyID = car.ID
	s.FuelMileage = car.FuelMileage
	s.BehindLeader = car.BehindLeader

	var rad float64
	// a car can cross at most every segment once per tick
	for range t.NSEG() {
		seg := car.SegID
		r := t.Right[seg]
		sin, cos := math.Sincos(r.BegAng)

		next := t.Next(seg)
		s.NexLen, s.NexRad = t.Right[next].Length, t.InnerRadius(next)
		next = t.Next(next)
		s.AfterLen, s.AfterRad = t.Right[next].Length, t.InnerRadius(next)
		next = t.Next(next)
		s.AftAftLen, s.AftAftRad = t.Right[next].Length, t.InnerRadius(next)

		s.CurLen = r.Length
		rad = t.Left[seg].Radius
		s.CurRad = rad
		if seg != 0 {
			car.lapFlag = false
		}

		switch {
		case rad == 0:
			dx, dy := car.X-r.BegX, car.Y-r.BegY
			xp := dx*cos + dy*sin
			yp := dy*cos - dx*sin
			s.ToRight = yp
			s.ToEnd = s.CurLen - xp

			if seg == 0 && xp > t.Finish*s.CurLen && !car.lapFlag {
				c.crossLine(car, xp, sin, cos)
			}
			if s.ToEnd <= 0 {
				car.SegID = t.Next(seg)
				continue
			}
			s.ToLeft = t.Width - yp
			s.Vn = car.YDot*cos - car.XDot*sin
			s.Backward = car.XDot*cos+car.YDot*sin < 0

		case rad > 0:
			dx, dy := car.X-r.CenX, car.Y-r.CenY
			s.ToEnd = wrapAngle(r.EndAng-math.Atan2(dy, dx)-math.Pi/2, false)
			if s.ToEnd <= 0 {
				car.SegID = t.Next(seg)
				continue
			}
			d := math.Hypot(dx, dy)
			s.ToLeft = d - rad
			s.ToRight = t.Width - s.ToLeft
			s.Vn = ratio(-car.XDot*dx-car.YDot*dy, d)
			s.Backward = car.YDot*dx-car.XDot*dy < 0

		default:
			rad = r.Radius
			s.CurRad = rad
			dx, dy := car.X-r.CenX, car.Y-r.CenY
			s.ToEnd = wrapAngle(-r.EndAng+math.Atan2(dy, dx)-math.Pi/2, true)
			if s.ToEnd <= 0 {
				car.SegID = t.Next(seg)
				continue
			}
			d := math.Hypot(dx, dy)
			s.ToRight = d + rad
			s.ToLeft = t.Width - s.ToRight
			s.Vn = ratio(car.XDot*dx+car.YDot*dy, d)
			s.Backward = car.XDot*dy-car.YDot*dx < 0
		}
		break
	}

	s.SegID = car.SegID
	s.LapTime = car.LapTime
	s.LastLapSpeed = car.LastLapSpeed
	s.BestLapSpeed = car.BestLapSpeed
	s.LapsDone = car.Laps
	s.LapsToGo = c.Opts.Laps - car.Laps

	car.Offroad = s.ToLeft < 0 || s.ToRight < 0
	car.VeryOffroad = s.ToLeft < -t.Width || s.ToRight < -t.Width
	car.ToEnd = s.ToEnd
	car.ToRight = s.ToRight
	car.Vn = s.Vn

	seg := car.SegID
	if rad != 0 {
		car.Distance = t.SegDist[seg] - math.Abs((t.Left[seg].Radius+t.Right[seg].Radius)*car.ToEnd/2)
	} else {
		car.Distance = t.SegDist[seg] - car.ToEnd
	}
	if car.Distance < 0 {
		car.Distance += t.Length
	}
	s.Distance = car.Distance

	if !s.Backward {
		car.backwardTicks = core.BackwardTickLimit
		return
	}
	car.DeadAhead = false
	s.DeadAhead = false
	car.backwardTicks--
	if car.backwardTicks == 0 {
		car.Damage = core.MaxDamage
	}
}

// wrapAngle folds the angle left in a curve into (-π/2, 3π/2]. Right curves
// use the half-open interval the other way round.
func wrapAngle(a float64, right bool) float64 {
	if right {
		if a < -.5*math.Pi {
			a += 2 * math.Pi
		} else if a >= 1.5*math.Pi {
			a -= 2 * math.Pi
		}
		return a
	}
	if a > 1.5*math.Pi {
		a -= 2 * math.Pi
	} else if a < -.5*math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// crossLine records a finish line crossing at projected position xp along
// segment 0, whose direction has the given sine and cosine.
func (c *Context) crossLine(car *Car, xp, sin, cos float64) {
	t := c.Track
	s := &car.sit
	s.LapFlag = true
	car.lapFlag = true
	car.Laps++

	lineTime := c.Elapsed
	if xv := car.XDot*cos + car.YDot*sin; xv > .0001 {
		lineTime -= (xp - t.Finish*s.CurLen) / xv
	}

	timed := false
	newRecord := false
	switch {
	case car.Laps == 0:
		car.StartTime = lineTime
		car.LastCrossing = lineTime

	case !car.Done:
		timed = true
		car.SpeedAvg = t.Length * float64(car.Laps) / c.Elapsed
		car.LapTime = lineTime - car.LastCrossing
		car.LapTimes = append(car.LapTimes, car.LapTime)
		car.LastLapSpeed = ratio(t.Length, car.LapTime)
		if car.LastLapSpeed > car.BestLapSpeed {
			car.BestLapSpeed = car.LastLapSpeed
			if car.BestLapSpeed > c.Record.Speed {
				c.Record = core.LapRecord{Speed: car.BestLapSpeed, Driver: car.Driver.Name()}
				newRecord = true
			}
		}
		if c.Stage == core.StageQualifying {
			car.QualBestLap = max(car.QualBestLap, car.BestLapSpeed)
			if car.Laps == c.Opts.QualifyingLaps && car.SpeedAvg > car.QualAvgSpeed {
				car.QualAvgSpeed = car.SpeedAvg
			}
		}
		if s.Position == 0 {
			car.LapsLed++
		}
		car.LastCrossing = lineTime
		c.fuelStats(car)
	}
	car.lastFuel[2] = car.lastFuel[1]
	car.lastFuel[1] = car.lastFuel[0]
	car.lastFuel[0] = car.Fuel

	switch c.Stage {
	case core.StageRacing:
		c.gaps(car, lineTime)
	case core.StageQualifying:
		c.QualifyingSort()
	}

	stageLaps := c.StageLaps()
	if car.Laps == stageLaps || (c.Stage == core.StageRacing && !car.Done && c.Finished > 0) {
		if !car.Done {
			c.Finished++
		}
		car.Done = true
	}

	if timed {
		c.Listener.LapCompleted(car, newRecord)
	}
}

// fuelStats updates mileage over the last one to three laps and the number
// of laps the remaining fuel should last.
func (c *Context) fuelStats(car *Car) {
	t := c.Track
	if car.lastFuel[2] > car.Fuel {
		laps := min(car.Laps, 3)
		used := car.lastFuel[laps-1] - car.Fuel
		if used > 0 {
			car.FuelMileage = float64(laps) * t.Length / (used * 5280)
		}
	}
	car.ProjectedLaps = int(car.Fuel * car.FuelMileage * 5280 / t.Length)
}

// gaps fills the time differences to the leader, to the car ahead and to the
// car behind. A car more than a lap away gets the negative lap count instead
// of a time.
func (c *Context) gaps(car *Car, lineTime float64) {
	laps := car.Laps
	lf := c.LapFinish
	if laps < 0 || laps >= len(lf[car.ID]) {
		return
	}
	lf[car.ID][laps] = lineTime

	leader := c.Cars[c.Order[0]]
	car.BehindLeader = lineTime - lf[leader.ID][laps]
	if leader.Laps != laps {
		car.BehindLeader = float64(laps - leader.Laps)
	}

	pos := c.PosOf[car.ID]
	if pos > 0 {
		car.BehindNext = lineTime - lf[c.Order[pos-1]][laps]
	} else {
		car.BehindNext = 0
	}

	if laps < 1 || pos == len(c.Cars)-1 {
		car.AheadNext = 0
		return
	}
	behind := lf[c.Order[pos+1]]
	car.AheadNext = behind[laps-1] - lf[car.ID][laps-1]
	if car.AheadNext >= 0 {
		return
	}
	if behind[laps-1] != 0 {
		car.AheadNext = core.NoCar // just passed
		return
	}
	for i := 1; i <= laps; i++ {
		if behind[laps-i] != 0 {
			car.AheadNext = float64(1 - i)
			break
		}
	}
}
