package streaming

import (
	"encoding/json"

	"github.com/OCAP2/racesim/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeLap          = "lap"
	TypePitStop      = "pit_stop"
	TypeCollision    = "collision"
	TypeCarSample    = "car_sample"
	TypeRetirement   = "retirement"
)

// TypeAck is the only message type the server sends back.
const TypeAck = "ack"

// Envelope wraps all messages sent over the WebSocket. Seq is set only on
// messages the server must acknowledge.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response. Servers that do not
// echo Seq are matched on For alone.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for"`
	Seq  uint64 `json:"seq,omitempty"`
}

// Acks reports whether a is the acknowledgement of the envelope with the
// given type and sequence number.
func (a AckMessage) Acks(msgType string, seq uint64) bool {
	if a.Type != TypeAck || a.For != msgType {
		return false
	}
	return a.Seq == 0 || a.Seq == seq
}

// StartSessionPayload carries the session being started.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// EndSessionPayload carries the final classification.
type EndSessionPayload struct {
	Result *core.SessionResult `json:"result"`
}
