package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SimInfo{},
	&Track{},
	&Session{},
	&CarEntry{},
	&Lap{},
	&PitStop{},
	&CollisionEvent{},
	&Retirement{},
	&Result{},
	&CarSample{},
	&SimPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// SimInfo describes the instance that wrote the database
type SimInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Version     string `json:"version" gorm:"size:64"`
}

func (*SimInfo) TableName() string {
	return "sim_infos"
}

// SimPerformance is a periodic snapshot of the event pipeline
type SimPerformance struct {
	ID                  uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time                time.Time      `json:"time" gorm:"type:timestamptz;index:idx_simperformance_time"`
	SessionID           string         `json:"sessionId" gorm:"size:27;index:idx_simperformance_session_id"`
	Tick                int            `json:"tick"`
	QueueLengths        datatypes.JSON `json:"queueLengths"`
	WriteQueueLength    int            `json:"writeQueueLength"`
	LastWriteDurationMs float32        `json:"lastWriteDurationMs"`
}

func (*SimPerformance) TableName() string {
	return "sim_performances"
}

////////////////////////
// TRACKS
////////////////////////

// Track is a circuit a session ran on, unique by name
type Track struct {
	gorm.Model
	Name      string  `json:"name" gorm:"size:127;uniqueIndex:idx_track_name"`
	Length    float64 `json:"length"` // ft, along the center line
	Width     float64 `json:"width"`
	Segments  int     `json:"segments"`
	PitLane   bool    `json:"pitLane"`
	Outline   string  `json:"outline"` // WKT MULTILINESTRING of right wall, left wall and center line
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Sessions  []Session
}

func (*Track) TableName() string {
	return "tracks"
}

// GetOrInsert loads the track with the same name, or inserts t when none exists.
func (t *Track) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing Track
	err = db.Where("name = ?", t.Name).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(t).Error
			return true, err
		}
		return false, err
	}
	*t = existing
	return false, nil
}

////////////////////////
// SESSION MODELS
////////////////////////

// Session is one practice, qualifying or race run
// ID is the ksuid assigned when the session starts
type Session struct {
	ID        string         `json:"id" gorm:"primaryKey;size:27"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	TrackID   uint           `json:"trackId" gorm:"index:idx_session_track_id"`
	Track     Track          `gorm:"foreignkey:TrackID"`
	Stage     string         `json:"stage" gorm:"size:16"`
	Index     int            `json:"index"`
	Laps      int            `json:"laps"`
	DeltaTime float64        `json:"deltaTime"`
	Seed      uint32         `json:"seed"`
	Tag       string         `json:"tag" gorm:"size:127"`
	StartTime time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_session_start"`
	EndTime   *time.Time     `json:"endTime" gorm:"type:timestamptz"`
	SimTime   float64        `json:"simTime"`
	Ticks     int            `json:"ticks"`
	Cancelled bool           `json:"cancelled" gorm:"default:false"`
	Config    datatypes.JSON `json:"config"` // options the session ran with
	Cars      []CarEntry
	Results   []Result
}

func (*Session) TableName() string {
	return "sessions"
}

// CarEntry is one car of a session's field
// Uses composite primary key (SessionID, Car)
type CarEntry struct {
	SessionID string  `json:"sessionId" gorm:"primaryKey;autoIncrement:false;size:27"`
	Car       int     `json:"car" gorm:"primaryKey;autoIncrement:false"`
	Session   Session `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Driver    string  `json:"driver" gorm:"size:64"`
}

func (*CarEntry) TableName() string {
	return "car_entries"
}

////////////////////////
// EVENT MODELS
////////////////////////

// Lap is a completed lap
type Lap struct {
	ID          uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID   string  `json:"sessionId" gorm:"size:27;index:idx_lap_session_id"`
	Session     Session `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Car         int     `json:"car" gorm:"index:idx_lap_car"`
	Driver      string  `json:"driver" gorm:"size:64"`
	Lap         int     `json:"lap"`
	Time        float64 `json:"time"` // sim seconds
	LapTime     float64 `json:"lapTime"`
	LapSpeed    float64 `json:"lapSpeed"` // ft/s
	Position    int     `json:"position"`
	Fuel        float64 `json:"fuel"`
	FuelMileage float64 `json:"fuelMileage"`
	Damage      int     `json:"damage"`
	NewRecord   bool    `json:"newRecord" gorm:"default:false"`
}

func (*Lap) TableName() string {
	return "laps"
}

// PitStop is a pit-state transition
type PitStop struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID string  `json:"sessionId" gorm:"size:27;index:idx_pitstop_session_id"`
	Session   Session `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Car       int     `json:"car"`
	Driver    string  `json:"driver" gorm:"size:64"`
	Lap       int     `json:"lap"`
	Time      float64 `json:"time"`
	State     string  `json:"state" gorm:"size:16"`
	Repair    int     `json:"repair"`
	Fuel      float64 `json:"fuel"`
	Duration  float64 `json:"duration"`
}

func (*PitStop) TableName() string {
	return "pit_stops"
}

// CollisionEvent is contact between two cars
type CollisionEvent struct {
	ID          uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID   string     `json:"sessionId" gorm:"size:27;index:idx_collision_session_id"`
	Session     Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time        float64    `json:"time"`
	Car         int        `json:"car"`
	Other       int        `json:"other"`
	Damage      int        `json:"damage"`
	OtherDamage int        `json:"otherDamage"`
	Overlap     float64    `json:"overlap"`
	Position    geom.Point `json:"position"` // track coordinates, ft
}

func (*CollisionEvent) TableName() string {
	return "collision_events"
}

// Retirement is a car leaving a session before the finish
type Retirement struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID string  `json:"sessionId" gorm:"size:27;index:idx_retirement_session_id"`
	Session   Session `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time      float64 `json:"time"`
	Car       int     `json:"car"`
	Driver    string  `json:"driver" gorm:"size:64"`
	Lap       int     `json:"lap"`
	Reason    string  `json:"reason" gorm:"size:64"`
}

func (*Retirement) TableName() string {
	return "retirements"
}

// CarSample is a periodic state snapshot of one car
type CarSample struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID string     `json:"sessionId" gorm:"size:27;index:idx_carsample_session_id"`
	Session   Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time      float64    `json:"time" gorm:"index:idx_carsample_time"`
	Car       int        `json:"car" gorm:"index:idx_carsample_car"`
	Position  geom.Point `json:"position"`
	Heading   float64    `json:"heading"` // radians
	Speed     float64    `json:"speed"`
	Lap       int        `json:"lap"`
	Distance  float64    `json:"distance"`
	Fuel      float64    `json:"fuel"`
	Damage    int        `json:"damage"`
	Place     int        `json:"place"`
}

func (*CarSample) TableName() string {
	return "car_samples"
}

////////////////////////
// RESULTS
////////////////////////

// Result is the end-of-session line for one car
// Uses composite primary key (SessionID, Car)
type Result struct {
	SessionID    string         `json:"sessionId" gorm:"primaryKey;autoIncrement:false;size:27"`
	Car          int            `json:"car" gorm:"primaryKey;autoIncrement:false"`
	Session      Session        `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Driver       string         `json:"driver" gorm:"size:64"`
	Finish       int            `json:"finish"`
	Started      int            `json:"started"`
	Laps         int            `json:"laps"`
	LapsLed      int            `json:"lapsLed"`
	AvgSpeed     float64        `json:"avgSpeed"`
	BestLapSpeed float64        `json:"bestLapSpeed"`
	MaxSpeed     float64        `json:"maxSpeed"`
	Damage       int            `json:"damage"`
	Fuel         float64        `json:"fuel"`
	PitStops     int            `json:"pitStops"`
	PitTime      float64        `json:"pitTime"`
	BehindLeader float64        `json:"behindLeader"`
	Done         bool           `json:"done" gorm:"default:false"`
	Out          bool           `json:"out" gorm:"default:false"`
	DNQ          bool           `json:"dnq" gorm:"default:false"`
	Points       int            `json:"points"`
	RobotTimeMs  int64          `json:"robotTimeMs"`
	LapTimes     datatypes.JSON `json:"lapTimes"`
}

func (*Result) TableName() string {
	return "results"
}
