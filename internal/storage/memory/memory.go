// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OCAP2/racesim/internal/config"
	"github.com/OCAP2/racesim/pkg/core"
)

// ErrNoSession is returned when an event arrives outside a session.
var ErrNoSession = errors.New("no active session")

// CarRecord groups a car with all its time-series data
type CarRecord struct {
	Car     int
	Driver  string
	Laps    []core.LapEvent
	Pits    []core.PitEvent
	Samples []core.CarSample
	Retired *core.RetireEvent
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	result  *core.SessionResult

	cars       map[int]*CarRecord // keyed by car id
	collisions []core.CollisionEvent

	lastExportPath string
	lastMetadata   core.UploadMetadata
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:  cfg,
		cars: make(map[int]*CarRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.result = nil
	b.collisions = nil
	b.cars = make(map[int]*CarRecord, len(s.Drivers))
	for i, name := range s.Drivers {
		b.cars[i] = &CarRecord{Car: i, Driver: name}
	}
	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession(r *core.SessionResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	if r.SessionID != b.session.ID {
		return fmt.Errorf("result for session %s while recording %s", r.SessionID, b.session.ID)
	}
	b.result = r
	err := b.exportJSON()
	b.session = nil
	return err
}

// car returns the record of id, creating it for cars the session did not list.
func (b *Backend) car(id int) *CarRecord {
	rec, ok := b.cars[id]
	if !ok {
		rec = &CarRecord{Car: id}
		b.cars[id] = rec
	}
	return rec
}

// RecordLap stores a completed lap
func (b *Backend) RecordLap(e *core.LapEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	rec := b.car(e.Car)
	rec.Laps = append(rec.Laps, *e)
	return nil
}

// RecordPitStop stores a pit-state transition
func (b *Backend) RecordPitStop(e *core.PitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	rec := b.car(e.Car)
	rec.Pits = append(rec.Pits, *e)
	return nil
}

// RecordCollision stores contact between two cars
func (b *Backend) RecordCollision(e *core.CollisionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.collisions = append(b.collisions, *e)
	return nil
}

// RecordCarSample stores a car state snapshot
func (b *Backend) RecordCarSample(s *core.CarSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	rec := b.car(s.Car)
	rec.Samples = append(rec.Samples, *s)
	return nil
}

// RecordRetirement marks a car as out. Only the first retirement counts.
func (b *Backend) RecordRetirement(e *core.RetireEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	rec := b.car(e.Car)
	if rec.Retired == nil {
		ev := *e
		rec.Retired = &ev
	}
	return nil
}

// GetCar returns a copy of the record of a car in the current session
func (b *Backend) GetCar(id int) (*CarRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.cars[id]
	if !ok {
		return nil, false
	}
	out := *rec
	return &out, true
}

// Collisions returns the collisions of the current session
func (b *Backend) Collisions() []core.CollisionEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.CollisionEvent(nil), b.collisions...)
}

// GetExportedFilePath returns the path of the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last exported session
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastMetadata
}
