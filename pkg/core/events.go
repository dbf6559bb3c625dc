// pkg/core/events.go
package core

// LapEvent is published on every genuine finish-line crossing.
type LapEvent struct {
	SessionID   string
	Stage       Stage
	Car         int
	Driver      string
	Lap         int
	Time        float64 // sim time of the crossing
	LapTime     float64
	LapSpeed    float64
	Position    int
	Fuel        float64
	FuelMileage float64
	Damage      int
	NewRecord   bool
}

// PitEvent marks a pit-state transition.
type PitEvent struct {
	SessionID string
	Car       int
	Driver    string
	Lap       int
	Time      float64
	State     PitState
	Repair    int
	Fuel      float64
	Duration  float64 // stop length, set when the car comes to rest
}

// CollisionEvent records contact between two cars.
type CollisionEvent struct {
	SessionID   string
	Time        float64
	Car         int
	Other       int
	Damage      int
	OtherDamage int
	Overlap     float64
	X, Y        float64
}

// CarSample is a periodic state snapshot of one car.
type CarSample struct {
	SessionID string
	Time      float64
	Car       int
	X, Y      float64
	Heading   float64
	Speed     float64
	Lap       int
	Distance  float64
	Fuel      float64
	Damage    int
	Position  int
}

// PositionEvent is published when a car's rank changes.
type PositionEvent struct {
	SessionID string
	Time      float64
	Car       int
	From, To  int
}

// RetireEvent is published once when a car leaves the session.
type RetireEvent struct {
	SessionID string
	Time      float64
	Car       int
	Driver    string
	Lap       int
	Reason    string
}
