// pkg/core/driver.go
package core

// Random is a deterministic source of integers in [0, MaxRand].
type Random interface {
	Next() int
}

// NearbyCar describes another car relative to this one. Coordinates are in a
// frame whose y axis points along this car's velocity.
type NearbyCar struct {
	RelX           float64 // how far to the right
	RelY           float64 // how far ahead
	RelXDot        float64
	RelYDot        float64
	Alpha          float64
	ToLeft         float64
	ToRight        float64
	V              float64
	Vn             float64
	Dist           float64 // separation
	Who            int     // NoCar when the slot is empty
	Braking        bool
	ForPosition    bool
	ComingFromPits bool
}

// Empty reports whether the slot carries no car.
func (n NearbyCar) Empty() bool { return n.Who == NoCar }

// Situation is the snapshot handed to a driver every tick.
type Situation struct {
	CurRad    float64 // inner wall radius, 0 straight, negative right curve
	CurLen    float64 // feet for straights, radians for curves
	ToLeft    float64
	ToRight   float64
	ToEnd     float64 // feet or radians remaining in the segment
	V         float64
	Vn        float64 // velocity component perpendicular to the track
	NexLen    float64
	NexRad    float64
	AfterRad  float64
	AfterLen  float64
	AftAftRad float64
	AftAftLen float64

	CenA, TanA float64
	Alpha, Vc  float64
	PowerReq   float64
	Power      float64

	Fuel         float64
	FuelMileage  float64 // miles per lb
	Damage       int
	TimeCount    float64
	StartTime    float64
	BestLapSpeed float64
	LastLapSpeed float64
	LapTime      float64
	Distance     float64
	BehindLeader float64

	Stage      Stage
	MyID       int
	SegID      int
	LapsToGo   int
	LapsDone   int
	Position   int
	Started    int
	DeadAhead  bool
	OutPits    bool
	GoPits     bool
	LapFlag    bool
	Backward   bool
	Starting   bool
	SideVision bool

	Nearby [NearbyCars]NearbyCar

	// Scratch persists across ticks for the same car.
	Scratch []byte
	Rand    Random
}

// ControlCommand is what a driver returns each tick.
type ControlCommand struct {
	Alpha        float64
	Vc           float64
	FuelAmount   float64
	RepairAmount int
	RequestPit   bool
}

// Driver is a control policy. Drive must return promptly; the simulation does
// not preempt it.
type Driver interface {
	Name() string
	Drive(s *Situation) ControlCommand
}
