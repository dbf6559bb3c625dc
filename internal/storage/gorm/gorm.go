// Package gormstorage implements the storage.Backend interface on GORM with
// internal queues and a background DB writer goroutine. The sqlite and
// postgres backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/racesim/internal/logging"
	"github.com/OCAP2/racesim/internal/model"
	"github.com/OCAP2/racesim/internal/model/convert"
	"github.com/OCAP2/racesim/internal/queue"
	"github.com/OCAP2/racesim/pkg/core"

	"gorm.io/gorm"
)

// DefaultWriteInterval is the pause between writer passes.
const DefaultWriteInterval = 2 * time.Second

// ErrNoDB is returned by Init when no database was injected.
var ErrNoDB = errors.New("no database")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	SessionConfig any // stored with every session row
	Version       string
	WriteInterval time.Duration
}

// MaxQueuedSamples bounds the car sample queue. A database that falls behind
// loses the oldest samples rather than growing without limit.
const MaxQueuedSamples = 250000

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Laps         *queue.Queue[model.Lap]
	PitStops     *queue.Queue[model.PitStop]
	Collisions   *queue.Queue[model.CollisionEvent]
	Retirements  *queue.Queue[model.Retirement]
	CarSamples   *queue.Queue[model.CarSample]
	Performances *queue.Queue[model.SimPerformance]
}

func newQueues() *queues {
	return &queues{
		Laps:         queue.New[model.Lap](),
		PitStops:     queue.New[model.PitStop](),
		Collisions:   queue.New[model.CollisionEvent](),
		Retirements:  queue.New[model.Retirement](),
		CarSamples:   queue.NewBounded[model.CarSample](MaxQueuedSamples),
		Performances: queue.New[model.SimPerformance](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	stopChan chan struct{}
	done     chan struct{}

	// serializes writer passes with the flush on EndSession
	writeMu        sync.Mutex
	lastWriteNanos atomic.Int64
	closeOnce      sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the DB writer goroutine.
// Without a DB the backend only queues, which tests rely on.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	go b.writerLoop()
	return nil
}

// setupDB migrates tables and records the instance row if it doesn't exist.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager.For("gorm")

	if !db.Migrator().HasTable(&model.SimInfo{}) {
		if err := db.AutoMigrate(&model.SimInfo{}); err != nil {
			log.Error("Failed to create sim_info table", "error", err)
			return fmt.Errorf("failed to auto-migrate SimInfo: %w", err)
		}
		if err := db.Create(&model.SimInfo{
			Name:        "racesim",
			Description: "RARS-style race simulator",
			Version:     b.deps.Version,
		}).Error; err != nil {
			return fmt.Errorf("failed to create sim_info entry: %w", err)
		}
	}

	log.Info("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("Database setup complete")
	return nil
}

// Close stops the DB writer goroutine after a final pass.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
		b.flush()
	})
	return nil
}

// StartSession get-or-inserts the track and creates the session row with its field.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return nil
	}

	db := b.deps.DB
	gormTrack := convert.CoreToTrack(*s)
	if _, err := gormTrack.GetOrInsert(db); err != nil {
		return fmt.Errorf("failed to get or insert track: %w", err)
	}

	gormSession := convert.CoreToSession(*s, b.deps.SessionConfig)
	gormSession.TrackID = gormTrack.ID
	if err := db.Create(&gormSession).Error; err != nil {
		b.deps.LogManager.For("gorm").Error("Failed to insert session", "session", s.ID, "error", err)
		return fmt.Errorf("failed to insert new session: %w", err)
	}
	return nil
}

// EndSession drains the queues, then stores the results and closes the session row.
func (b *Backend) EndSession(r *core.SessionResult) error {
	if b.deps.DB == nil {
		return nil
	}
	b.flush()

	db := b.deps.DB
	now := time.Now().UTC()
	if err := db.Model(&model.Session{}).Where("id = ?", r.SessionID).Updates(map[string]any{
		"end_time":  now,
		"sim_time":  r.SimTime,
		"ticks":     r.Ticks,
		"cancelled": r.Cancelled,
	}).Error; err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	results := convert.CoreToResults(*r)
	if len(results) == 0 {
		return nil
	}
	if err := db.Create(&results).Error; err != nil {
		return fmt.Errorf("failed to insert results: %w", err)
	}
	return nil
}

// RecordLap converts and queues a lap.
func (b *Backend) RecordLap(e *core.LapEvent) error {
	b.queues.Laps.Push(convert.CoreToLap(*e))
	return nil
}

// RecordPitStop converts and queues a pit-state transition.
func (b *Backend) RecordPitStop(e *core.PitEvent) error {
	b.queues.PitStops.Push(convert.CoreToPitStop(*e))
	return nil
}

// RecordCollision converts and queues a collision.
func (b *Backend) RecordCollision(e *core.CollisionEvent) error {
	b.queues.Collisions.Push(convert.CoreToCollisionEvent(*e))
	return nil
}

// RecordCarSample converts and queues a car sample.
func (b *Backend) RecordCarSample(s *core.CarSample) error {
	b.queues.CarSamples.Push(convert.CoreToCarSample(*s))
	return nil
}

// RecordRetirement converts and queues a retirement.
func (b *Backend) RecordRetirement(e *core.RetireEvent) error {
	b.queues.Retirements.Push(convert.CoreToRetirement(*e))
	return nil
}

// RecordPerformance queues a pipeline snapshot.
func (b *Backend) RecordPerformance(p model.SimPerformance) error {
	p.LastWriteDurationMs = float32(b.GetLastDBWriteDuration().Seconds() * 1000)
	b.queues.Performances.Push(p)
	return nil
}

// GetLastDBWriteDuration returns the duration of the last writer pass.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNanos.Load())
}

// QueueLengths reports the number of rows waiting per table.
func (b *Backend) QueueLengths() map[string]int {
	return map[string]int{
		"laps":         b.queues.Laps.Len(),
		"pitStops":     b.queues.PitStops.Len(),
		"collisions":   b.queues.Collisions.Len(),
		"retirements":  b.queues.Retirements.Len(),
		"carSamples":   b.queues.CarSamples.Len(),
		"performances": b.queues.Performances.Len(),

		"carSamplesDropped": int(b.queues.CarSamples.Dropped()),
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back on the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.Drain()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Batch insert failed, requeued", "rows", len(items), "table", name, "error", err)
		tx.Rollback()
		q.Requeue(items)
		return
	}

	tx.Commit()
}

// flush runs one writer pass.
func (b *Backend) flush() {
	if b.deps.DB == nil {
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	db := b.deps.DB
	log := b.deps.LogManager.For("gorm")

	writeQueue(db, b.queues.Laps, "laps", log)
	writeQueue(db, b.queues.PitStops, "pit stops", log)
	writeQueue(db, b.queues.Collisions, "collisions", log)
	writeQueue(db, b.queues.Retirements, "retirements", log)
	writeQueue(db, b.queues.CarSamples, "car samples", log)
	writeQueue(db, b.queues.Performances, "performances", log)

	b.lastWriteNanos.Store(int64(time.Since(start)))
}

// writerLoop periodically drains queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.flush()
		}
	}
}
