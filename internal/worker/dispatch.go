package worker

import (
	"context"
	"fmt"

	"github.com/OCAP2/racesim/internal/dispatcher"
	"github.com/OCAP2/racesim/pkg/core"
)

// Commands the race sink dispatches.
const (
	CmdSessionStart = ":SESSION:START:"
	CmdSessionEnd   = ":SESSION:END:"
	CmdLap          = ":LAP:"
	CmdPit          = ":PIT:"
	CmdCollision    = ":COLLISION:"
	CmdSample       = ":SAMPLE:"
	CmdRetire       = ":RETIRE:"
	CmdPosition     = ":POSITION:"
)

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.flusher = d

	// Session boundaries - sync (rows must exist before events land, and the
	// end waits for everything queued before it)
	d.Register(CmdSessionStart, m.handleSessionStart, dispatcher.Logged())
	d.Register(CmdSessionEnd, m.handleSessionEnd, dispatcher.Logged())

	// High-volume car state - buffered, drops when full
	d.Register(CmdSample, m.handleCarSample, dispatcher.Buffered(10000))

	// Race events - buffered
	d.Register(CmdLap, m.handleLap, dispatcher.Buffered(2000), dispatcher.Logged())
	d.Register(CmdPit, m.handlePitStop, dispatcher.Buffered(500), dispatcher.Logged())
	d.Register(CmdCollision, m.handleCollision, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CmdRetire, m.handleRetirement, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(CmdPosition, m.handlePosition, dispatcher.Buffered(1000))
}

func payload[T any](e dispatcher.Event) (T, error) {
	v, ok := e.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w for %s: %T", ErrUnexpectedPayload, e.Command, e.Payload)
	}
	return v, nil
}

func (m *Manager) handleSessionStart(e dispatcher.Event) (any, error) {
	s, err := payload[*core.Session](e)
	if err != nil {
		return nil, err
	}

	m.deps.SessionContext.Start(s)
	m.deps.LogManager.Logger().Debug("Recording session", "cars", len(s.Drivers), "laps", s.Laps)

	if m.hasBackend() {
		if err := m.backend.StartSession(s); err != nil {
			return nil, fmt.Errorf("failed to start session: %w", err)
		}
	}
	return nil, nil
}

func (m *Manager) handleSessionEnd(e dispatcher.Event) (any, error) {
	r, err := payload[*core.SessionResult](e)
	if err != nil {
		return nil, err
	}

	if m.flusher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.deps.FlushTimeout)
		err := m.flusher.Flush(ctx)
		cancel()
		if err != nil {
			m.deps.LogManager.Logger().Warn("Buffered events still pending at session end", "error", err)
		}
	}

	defer m.deps.SessionContext.End(r)
	m.deps.LogManager.Logger().Debug("Closing session", "cars", len(r.Cars), "cancelled", r.Cancelled)

	if m.hasBackend() {
		if err := m.backend.EndSession(r); err != nil {
			return nil, fmt.Errorf("failed to end session: %w", err)
		}
	}
	return nil, nil
}

func (m *Manager) handleLap(e dispatcher.Event) (any, error) {
	lap, err := payload[*core.LapEvent](e)
	if err != nil {
		return nil, err
	}

	if m.influxEnabled() {
		if err := m.deps.Influx.RecordLap(context.Background(), lap); err != nil {
			m.deps.LogManager.For(CmdLap).Error("Error writing lap to InfluxDB", "error", err)
		}
	}
	if m.hasBackend() {
		if err := m.backend.RecordLap(lap); err != nil {
			return nil, fmt.Errorf("failed to record lap: %w", err)
		}
	}
	return nil, nil
}

func (m *Manager) handlePitStop(e dispatcher.Event) (any, error) {
	pit, err := payload[*core.PitEvent](e)
	if err != nil {
		return nil, err
	}

	// only the stop itself carries a duration
	if pit.State == core.PitStopped && m.influxEnabled() {
		if err := m.deps.Influx.RecordPitStop(context.Background(), pit); err != nil {
			m.deps.LogManager.For(CmdPit).Error("Error writing pit stop to InfluxDB", "error", err)
		}
	}
	if m.hasBackend() {
		if err := m.backend.RecordPitStop(pit); err != nil {
			return nil, fmt.Errorf("failed to record pit stop: %w", err)
		}
	}
	return nil, nil
}

func (m *Manager) handleCollision(e dispatcher.Event) (any, error) {
	c, err := payload[*core.CollisionEvent](e)
	if err != nil {
		return nil, err
	}
	if m.hasBackend() {
		if err := m.backend.RecordCollision(c); err != nil {
			return nil, fmt.Errorf("failed to record collision: %w", err)
		}
	}
	return nil, nil
}

func (m *Manager) handleCarSample(e dispatcher.Event) (any, error) {
	s, err := payload[*core.CarSample](e)
	if err != nil {
		return nil, err
	}

	if m.influxEnabled() {
		if err := m.deps.Influx.RecordSample(context.Background(), s); err != nil {
			m.deps.LogManager.For(CmdSample).Error("Error writing sample to InfluxDB", "error", err)
		}
	}
	if m.hasBackend() {
		if err := m.backend.RecordCarSample(s); err != nil {
			return nil, fmt.Errorf("failed to record car sample: %w", err)
		}
	}
	return nil, nil
}

func (m *Manager) handleRetirement(e dispatcher.Event) (any, error) {
	r, err := payload[*core.RetireEvent](e)
	if err != nil {
		return nil, err
	}
	if m.hasBackend() {
		if err := m.backend.RecordRetirement(r); err != nil {
			return nil, fmt.Errorf("failed to record retirement: %w", err)
		}
	}
	return nil, nil
}

// handlePosition tracks the leader for log context. Positions are not stored.
func (m *Manager) handlePosition(e dispatcher.Event) (any, error) {
	p, err := payload[*core.PositionEvent](e)
	if err != nil {
		return nil, err
	}
	if p.To != 0 {
		return nil, nil
	}
	s := m.deps.SessionContext.GetSession()
	if s != nil && p.Car >= 0 && p.Car < len(s.Drivers) {
		m.deps.SessionContext.SetLeader(s.Drivers[p.Car])
	}
	return nil, nil
}
