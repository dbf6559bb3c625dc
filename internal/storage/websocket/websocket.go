package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/OCAP2/racesim/pkg/core"
	"github.com/OCAP2/racesim/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams session data over WebSocket to a live results server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	if b.cfg.URL == "" {
		return fmt.Errorf("websocket URL not set")
	}
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope encodes payload under msgType. seq is zero for messages
// that are not acknowledged.
func marshalEnvelope(msgType string, seq uint64, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Seq: seq, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, 0, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// request sends an acknowledged message and waits for its ack.
func (b *Backend) request(msgType string, payload any, before func([]byte)) error {
	seq := b.conn.seq.Add(1)
	data, err := marshalEnvelope(msgType, seq, payload)
	if err != nil {
		return err
	}
	if before != nil {
		before(data)
	}
	return b.conn.sendAndWait(data, msgType, seq, ackTimeout)
}

// StartSession announces the session and waits for the server ack. The
// announcement is kept for replay if the socket drops mid-session.
func (b *Backend) StartSession(s *core.Session) error {
	return b.request(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s}, b.conn.setResume)
}

// EndSession sends the classification and waits for the server ack.
func (b *Backend) EndSession(r *core.SessionResult) error {
	err := b.request(streaming.TypeEndSession, streaming.EndSessionPayload{Result: r}, nil)
	// a reconnect after this point must not resume the finished session
	b.conn.setResume(nil)
	return err
}

func (b *Backend) RecordLap(e *core.LapEvent) error {
	return b.sendEnvelope(streaming.TypeLap, e)
}

func (b *Backend) RecordPitStop(e *core.PitEvent) error {
	return b.sendEnvelope(streaming.TypePitStop, e)
}

func (b *Backend) RecordCollision(e *core.CollisionEvent) error {
	return b.sendEnvelope(streaming.TypeCollision, e)
}

func (b *Backend) RecordCarSample(s *core.CarSample) error {
	return b.sendEnvelope(streaming.TypeCarSample, s)
}

func (b *Backend) RecordRetirement(e *core.RetireEvent) error {
	return b.sendEnvelope(streaming.TypeRetirement, e)
}

// QueueLengths reports the outgoing buffer, dropped messages and how often
// the socket was re-established.
func (b *Backend) QueueLengths() map[string]int {
	return map[string]int{
		"websocket":            b.conn.pending(),
		"websocket_dropped":    int(b.conn.dropped.Load()),
		"websocket_reconnects": int(b.conn.reconnects.Load()),
	}
}
