// pkg/core/session.go
package core

import "time"

// Session describes one practice, qualifying or race run.
type Session struct {
	ID          string
	Stage       Stage
	Index       int // race number or qualifying session number
	Track       string
	TrackLength float64
	TrackWidth  float64
	Segments    int
	Outline     string // WKT
	Tag         string
	Laps        int
	Drivers     []string
	DeltaTime   float64
	Seed        uint32
	StartTime   time.Time
}

// CarResult is the end-of-session line for one car.
type CarResult struct {
	Car          int
	Driver       string
	Finish       int
	Started      int
	Laps         int
	LapsLed      int
	AvgSpeed     float64 // ft/s
	BestLapSpeed float64
	LastLapSpeed float64
	MaxSpeed     float64
	Damage       int
	Fuel         float64
	PitStops     int
	PitTime      float64
	PitLaps      []int
	Done         bool
	Out          bool
	DNQ          bool
	QualBestLap  float64
	QualAvgSpeed float64
	BehindLeader float64
	LastCrossing float64
	RobotTime    time.Duration
	LapTimes     []float64
	Points       int
}

// LapRecord is the fastest lap seen on a track.
type LapRecord struct {
	Speed  float64
	Driver string
}

// SessionResult is published once a session ends.
type SessionResult struct {
	SessionID string
	Stage     Stage
	Index     int
	Track     string
	SimTime   float64
	Ticks     int
	Cancelled bool
	Cars      []CarResult // in finishing order
	Record    LapRecord
}

// UploadMetadata contains metadata for uploading an exported results file.
type UploadMetadata struct {
	TrackName   string
	SessionName string
	Duration    float64
	Tag         string
}
