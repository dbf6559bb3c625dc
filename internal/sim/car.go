package sim

import (
	"math"
	"time"

	"github.com/OCAP2/racesim/internal/collision"
	"github.com/OCAP2/racesim/internal/physics"
	"github.com/OCAP2/racesim/pkg/core"
)

// OutState tells whether a car takes part in the simulation this tick.
type OutState int

const (
	Running OutState = iota
	Retired
	InPit // stationary in the pit box
	DidNotQualify
)

func (o OutState) String() string {
	switch o {
	case Retired:
		return "retired"
	case InPit:
		return "in pit"
	case DidNotQualify:
		return "dnq"
	default:
		return "running"
	}
}

// Car is one entry of the vehicle arena. Cars refer to each other only by ID,
// which is also the index into Context.Cars.
type Car struct {
	ID     int
	Driver core.Driver
	physics.Kinematics

	Ang       float64 // heading of the velocity vector
	Alpha     float64 // angle of attack
	PrevAlpha float64
	Vc        float64
	PowerReq  float64
	Power     float64
	CenA      float64
	TanA      float64

	Fuel   float64
	Damage int

	SegID       int
	Distance    float64 // from the finish line along the center line
	ToEnd       float64
	ToRight     float64
	Vn          float64
	Offroad     bool
	VeryOffroad bool
	DeadAhead   bool

	Laps     int
	LapsLed  int
	Starting bool
	Done     bool
	Out      OutState
	Started  int // grid slot

	GoPits         bool
	OutPits        bool
	Pitting        bool
	OnPitLane      bool
	ComingFromPits bool
	RepairAmount   int
	FuelAmount     float64
	PitStops       int
	LastPitVisit   int
	PitLaps        []int
	TotalPitTime   float64

	StartTime     float64
	LastCrossing  float64
	LapTime       float64
	LapTimes      []float64
	SpeedAvg      float64
	SpeedMax      float64
	BestLapSpeed  float64
	LastLapSpeed  float64
	QualBestLap   float64
	QualAvgSpeed  float64
	FuelMileage   float64
	ProjectedLaps int
	BehindLeader  float64
	BehindNext    float64
	AheadNext     float64

	CollisionFlash int
	RobotTime      time.Duration

	sit           core.Situation
	lapFlag       bool
	backwardTicks int
	lastFuel      [3]float64
	pitDoneTime   float64
	fullLoad      float64
	pitBefore     core.PitState
}

func newCar(id int, d core.Driver, rnd core.Random) *Car {
	c := &Car{ID: id, Driver: d, Power: .9, PowerReq: .9}
	c.sit.Scratch = make([]byte, core.PrivateDataSize)
	c.sit.Rand = rnd
	c.sit.MyID = id
	for k := range c.sit.Nearby {
		c.sit.Nearby[k].Who = core.NoCar
	}
	return c
}

// Situation is the snapshot the car's driver sees.
func (c *Car) Situation() *core.Situation { return &c.sit }

// PitState maps the pit flags onto the pit sub-state.
func (c *Car) PitState() core.PitState {
	switch {
	case c.Pitting:
		return core.PitStopped
	case c.GoPits:
		return core.PitApproach
	case c.OutPits:
		return core.PitExit
	default:
		return core.PitNone
	}
}

// InPitManeuver reports whether the pit code has taken over from the driver.
func (c *Car) InPitManeuver() bool { return c.GoPits || c.OutPits }

// Heading is the direction the car points: velocity heading plus alpha.
func (c *Car) Heading() float64 { return c.Ang + c.Alpha }

// Place resets the car's race state and puts it at x, y facing ang. Qualifying
// results survive a reset.
func (c *Car) Place(x, y, ang float64, stage core.Stage) {
	c.Kinematics.Reset(x, y, ang, core.StartingSpeed)
	c.Ang = ang
	c.Alpha, c.PrevAlpha = 0, 0
	c.Vc = core.StartingSpeed
	c.TanA, c.CenA = 0, 0
	c.ToEnd = 0
	if stage == core.StageQualifying {
		c.SegID = 0
	}

	c.Fuel = core.MaxFuel
	c.lastFuel = [3]float64{core.MaxFuel, core.MaxFuel, core.MaxFuel}
	c.Damage = 0
	c.Distance = 0
	c.Offroad, c.VeryOffroad, c.DeadAhead = false, false, false

	c.Laps = -1 // the first crossing of the line starts lap 0
	c.LapsLed = 0
	c.Starting = true
	c.Done = false
	c.Out = Running
	c.lapFlag = false
	c.backwardTicks = core.BackwardTickLimit

	c.GoPits, c.OutPits, c.Pitting, c.OnPitLane, c.ComingFromPits = false, false, false, false, false
	c.RepairAmount, c.FuelAmount = 0, 0
	c.PitStops, c.LastPitVisit = 0, 0
	c.PitLaps = nil
	c.TotalPitTime = 0
	c.pitDoneTime, c.fullLoad = 0, 0
	c.pitBefore = core.PitNone

	c.StartTime, c.LastCrossing, c.LapTime = 0, 0, 0
	c.LapTimes = nil
	c.SpeedAvg, c.SpeedMax = 0, 0
	c.BestLapSpeed, c.LastLapSpeed = 0, 0
	c.FuelMileage, c.ProjectedLaps = 0, 0
	c.BehindLeader, c.BehindNext, c.AheadNext = 0, 0, 0
	c.CollisionFlash = 0
}

func (c *Car) body() collision.Body {
	return collision.Body{X: c.X, Y: c.Y, XDot: c.XDot, YDot: c.YDot, Heading: c.Heading()}
}

func (c *Car) setBody(b collision.Body) {
	c.X, c.Y = b.X, b.Y
	c.XDot, c.YDot = b.XDot, b.YDot
}

// addDamage accumulates damage, never beyond core.MaxDamage.
func (c *Car) addDamage(d int) {
	if d <= 0 {
		return
	}
	c.Damage = min(c.Damage+d, core.MaxDamage)
}

// over reports whether damage or fuel forces the car out.
func (c *Car) over() bool {
	return c.Damage >= core.MaxDamage || c.Fuel <= 0
}

// ratio divides a by b, or returns 0 when b is too small to divide by.
func ratio(a, b float64) float64 {
	if math.Abs(b) < .0001 {
		return 0
	}
	return a / b
}
