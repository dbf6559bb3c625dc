package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/racesim/internal/influx"
	"github.com/OCAP2/racesim/internal/logging"
	"github.com/OCAP2/racesim/internal/model"
	"github.com/OCAP2/racesim/internal/race"
	"github.com/OCAP2/racesim/internal/session"
	"github.com/OCAP2/racesim/internal/worker"

	"gorm.io/datatypes"
)

// StatusFile is written to the output directory on every tick
const StatusFile = "status.json"

// DefaultInterval is the time between status snapshots
const DefaultInterval = time.Second

// PerformanceRecorder stores pipeline snapshots. The gorm storage backend
// satisfies it.
type PerformanceRecorder interface {
	RecordPerformance(p model.SimPerformance) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager     *logging.SlogManager
	SessionContext *session.Context
	WorkerManager  *worker.Manager
	Status         func() race.Status    // running session snapshot
	QueueSizes     func() map[string]int // dispatcher queues
	Performance    PerformanceRecorder   // optional
	Influx         *influx.Manager       // optional
	OutputDir      string
	Interval       time.Duration
}

// Status is the content of the status file
type Status struct {
	Time                time.Time      `json:"time"`
	SessionID           string         `json:"sessionId"`
	Stage               string         `json:"stage"`
	Index               int            `json:"index"`
	Track               string         `json:"track"`
	Tick                int            `json:"tick"`
	SimTime             float64        `json:"simTime"`
	Leader              string         `json:"leader"`
	Running             int            `json:"running"`
	Out                 int            `json:"out"`
	DispatcherQueues    map[string]int `json:"dispatcherQueues"`
	WriteQueues         map[string]int `json:"writeQueues"`
	LastWriteDurationMs float32        `json:"lastWriteDurationMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus collects the current status and the matching
// performance row.
func (s *Service) GetProgramStatus() (Status, model.SimPerformance) {
	now := time.Now()
	st := Status{Time: now}

	if s.deps.Status != nil {
		rs := s.deps.Status()
		st.SessionID = rs.SessionID
		st.Stage = rs.Stage.String()
		st.Index = rs.Index
		st.Tick = rs.Tick
		st.SimTime = rs.SimTime
		st.Leader = rs.Leader
		st.Running = rs.Running
		st.Out = rs.Out
	}
	if s.deps.SessionContext != nil {
		sess := s.deps.SessionContext.GetSession()
		st.Track = sess.Track
		if st.SessionID == "" {
			st.SessionID = sess.ID
		}
	}
	if s.deps.QueueSizes != nil {
		st.DispatcherQueues = s.deps.QueueSizes()
	}

	writeQueueLength := 0
	if s.deps.WorkerManager != nil {
		st.WriteQueues = s.deps.WorkerManager.QueueLengths()
		st.LastWriteDurationMs = float32(s.deps.WorkerManager.GetLastDBWriteDuration().Seconds() * 1000)
		for _, n := range st.WriteQueues {
			writeQueueLength += n
		}
	}

	queues, err := json.Marshal(st.DispatcherQueues)
	if err != nil {
		queues = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	perf := model.SimPerformance{
		Time:                now,
		SessionID:           st.SessionID,
		Tick:                st.Tick,
		QueueLengths:        datatypes.JSON(queues),
		WriteQueueLength:    writeQueueLength,
		LastWriteDurationMs: st.LastWriteDurationMs,
	}

	return st, perf
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(s.deps.OutputDir, 0o755); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("creating status directory: %w", err)
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				s.tick()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()

	return nil
}

// tick writes the status file and records performance while a session runs.
func (s *Service) tick() {
	logger := s.deps.LogManager.Logger()
	st, perf := s.GetProgramStatus()

	if err := s.writeStatus(st); err != nil {
		logger.Error("Error writing status file", "error", err)
	}

	if s.deps.SessionContext != nil && !s.deps.SessionContext.Active() {
		return
	}
	if s.deps.Performance != nil {
		if err := s.deps.Performance.RecordPerformance(perf); err != nil {
			logger.Error("Error recording performance", "error", err)
		}
	}
	if s.deps.Influx != nil && (s.deps.Influx.IsValid || s.deps.Influx.BackupWriter != nil) {
		queues := make(map[string]int, len(st.DispatcherQueues)+len(st.WriteQueues))
		for k, v := range st.DispatcherQueues {
			queues[k] = v
		}
		for k, v := range st.WriteQueues {
			queues[k] = v
		}
		if err := s.deps.Influx.RecordPerformance(context.Background(), st.SessionID, st.Tick, st.SimTime, queues); err != nil {
			logger.Error("Error writing performance to InfluxDB", "error", err)
		}
	}
}

// writeStatus replaces the status file atomically.
func (s *Service) writeStatus(st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.deps.OutputDir, StatusFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Stop stops the status monitor and waits for the last snapshot
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	done := s.done
	s.mu.Unlock()
	<-done
}
