package sim

import (
	"fmt"
	"time"

	"github.com/OCAP2/racesim/internal/physics"
	"github.com/OCAP2/racesim/pkg/core"
)

// control asks the car's driver for a command and applies it, including the
// start-of-session fuel load and pit requests.
func (c *Context) control(car *Car) error {
	var cmd core.ControlCommand
	if car.Out == Running {
		s := &car.sit
		s.Starting = car.Starting
		s.OutPits = car.OutPits
		s.GoPits = car.GoPits

		start := time.Now()
		var err error
		cmd, err = drive(car)
		car.RobotTime += time.Since(start)
		if err != nil {
			return err
		}

		if car.Starting {
			car.Fuel = cmd.FuelAmount
			if car.Fuel < 1 || car.Fuel > core.MaxFuel {
				car.Fuel = core.MaxFuel
			}
			car.Starting = false
		}
	}

	// coast down once the flag has fallen
	if car.Done && car.sit.V > 80 {
		car.Vc = car.sit.V * .95
	} else {
		car.Vc = cmd.Vc
	}
	car.Alpha = physics.AlphaLimit(car.PrevAlpha, cmd.Alpha, c.Opts.DeltaTime)
	car.PrevAlpha = car.Alpha

	if cmd.RequestPit {
		c.requestPit(car, cmd)
	}
	return nil
}

func drive(car *Car) (cmd core.ControlCommand, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrDriverFailed, car.Driver.Name(), r)
		}
	}()
	return car.Driver.Drive(&car.sit), nil
}

// requestPit accepts a pit request made in the window past pit entry, unless
// someone has already finished or the car is already in the pit lane.
// Requested amounts are clamped to what can be repaired and what fits the tank.
func (c *Context) requestPit(car *Car, cmd core.ControlCommand) {
	entry := c.Track.Pit.Entry
	if c.Finished > 0 || car.InPitManeuver() ||
		car.Distance <= entry || car.Distance >= entry+core.PitRequestWindow {
		return
	}
	car.GoPits = true
	car.LastPitVisit = car.Laps + 1
	car.PitStops++
	car.PitLaps = append(car.PitLaps, car.Laps+1)
	car.RepairAmount = max(0, min(cmd.RepairAmount, car.Damage))
	car.FuelAmount = max(0, min(cmd.FuelAmount, core.MaxFuel-car.Fuel))
}
