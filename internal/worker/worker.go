package worker

import (
	"context"
	"errors"
	"time"

	"github.com/OCAP2/racesim/internal/influx"
	"github.com/OCAP2/racesim/internal/logging"
	"github.com/OCAP2/racesim/internal/session"
	"github.com/OCAP2/racesim/internal/storage"
)

// ErrUnexpectedPayload is returned when an event carries the wrong type
var ErrUnexpectedPayload = errors.New("unexpected payload type")

// DefaultFlushTimeout bounds how long a session end waits for buffered events
const DefaultFlushTimeout = 30 * time.Second

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	LogManager     *logging.SlogManager
	SessionContext *session.Context
	Influx         *influx.Manager // optional
	FlushTimeout   time.Duration
}

// Flusher waits for queued events. The dispatcher satisfies it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Manager forwards dispatched race events to storage and InfluxDB
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	flusher Flusher
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.SessionContext == nil {
		deps.SessionContext = session.NewContext()
	}
	if deps.FlushTimeout <= 0 {
		deps.FlushTimeout = DefaultFlushTimeout
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

func (m *Manager) hasBackend() bool {
	return m.backend != nil
}

// influxEnabled reports whether points can go to InfluxDB or its backup file.
func (m *Manager) influxEnabled() bool {
	return m.deps.Influx != nil && (m.deps.Influx.IsValid || m.deps.Influx.BackupWriter != nil)
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}

// QueueLengths returns the backend's pending writes, if it reports them.
func (m *Manager) QueueLengths() map[string]int {
	if q, ok := m.backend.(storage.QueueReporter); ok {
		return q.QueueLengths()
	}
	return nil
}
