package worker

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/OCAP2/racesim/internal/dispatcher"
	"github.com/OCAP2/racesim/pkg/core"
)

// Sink turns race callbacks into dispatcher events. Session boundaries are
// handled synchronously; everything else is queued and dropped when the
// queue is full.
type Sink struct {
	d       *dispatcher.Dispatcher
	log     *slog.Logger
	dropped atomic.Int64
}

// NewSink creates a Sink dispatching to d. A nil logger uses slog.Default.
func NewSink(d *dispatcher.Dispatcher, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{d: d, log: log}
}

// Dropped returns how many events were lost to full queues or a closed
// dispatcher.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Sink) dispatch(command string, payload any) {
	_, err := s.d.Dispatch(dispatcher.NewEvent(command, payload))
	switch {
	case err == nil:
	case errors.Is(err, dispatcher.ErrQueueFull), errors.Is(err, dispatcher.ErrClosed):
		if s.dropped.Add(1) == 1 {
			s.log.Warn("Dropping race events", "command", command, "error", err)
		}
	default:
		s.log.Error("Failed to dispatch race event", "command", command, "error", err)
	}
}

func (s *Sink) SessionStarted(sess *core.Session) {
	if _, err := s.d.Dispatch(dispatcher.NewEvent(CmdSessionStart, sess)); err != nil {
		s.log.Error("Failed to start session recording", "error", err)
	}
}

func (s *Sink) SessionEnded(r *core.SessionResult) {
	if _, err := s.d.Dispatch(dispatcher.NewEvent(CmdSessionEnd, r)); err != nil {
		s.log.Error("Failed to end session recording", "error", err)
	}
}

func (s *Sink) CarMoved(e *core.CarSample)            { s.dispatch(CmdSample, e) }
func (s *Sink) LapCompleted(e *core.LapEvent)         { s.dispatch(CmdLap, e) }
func (s *Sink) PositionChanged(e *core.PositionEvent) { s.dispatch(CmdPosition, e) }
func (s *Sink) Collision(e *core.CollisionEvent)      { s.dispatch(CmdCollision, e) }
func (s *Sink) PitStateChanged(e *core.PitEvent)      { s.dispatch(CmdPit, e) }
func (s *Sink) CarRetired(e *core.RetireEvent)        { s.dispatch(CmdRetire, e) }
