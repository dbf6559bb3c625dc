package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/racesim/pkg/streaming"
)

const (
	sendChSize   = 10_000
	ackChSize    = 16
	maxReconnect = 10
	minBackoff   = time.Second
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// connection owns one live socket at a time. A single write loop drains
// sendCh; a read loop routes acks. Either loop failing starts a reconnect.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	lost   chan struct{} // closed when conn is retired
	closed bool

	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}

	url    string
	header http.Header

	// resume is replayed first after a reconnect so the server reattaches
	// the stream to the open session. Nil between sessions.
	resume []byte

	seq        atomic.Uint64
	dropped    atomic.Uint64
	reconnects atomic.Uint64

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// authHeader carries the API secret as a bearer token.
func authHeader(secret string) http.Header {
	h := http.Header{}
	if secret != "" {
		h.Set("Authorization", "Bearer "+secret)
	}
	return h
}

func (c *connection) dial(rawURL, secret string) error {
	c.url = rawURL
	c.header = authHeader(secret)

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.attach(conn)
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	conn, resp, err := ws.DefaultDialer.Dial(c.url, c.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach installs conn and starts both loops on it.
func (c *connection) attach(conn *ws.Conn) {
	lost := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.lost = lost
	c.mu.Unlock()

	go c.writeLoop(conn, lost)
	go c.readLoop(conn)
}

func (c *connection) writeLoop(conn *ws.Conn, lost <-chan struct{}) {
	for {
		select {
		case <-c.done:
			return
		case <-lost:
			return
		case data := <-c.sendCh:
			if err := writeText(conn, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				go c.reconnect(conn)
				return
			}
		}
	}
}

func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("WebSocket read error", "error", err)
				go c.reconnect(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring server message", "raw", string(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For, "seq", ack.Seq)
		}
	}
}

func writeText(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, maxBackoff)
}

// reconnect replaces the failed socket. Both loops may report the same
// failure; only the first caller for a given socket proceeds.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != failed {
		c.mu.Unlock()
		return
	}
	close(c.lost)
	c.conn = nil
	c.mu.Unlock()
	_ = failed.Close()

	backoff := minBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = nextBackoff(backoff)
			continue
		}

		c.mu.Lock()
		resume := c.resume
		c.mu.Unlock()
		if resume != nil {
			if err := writeText(conn, resume); err != nil {
				c.logger.Warn("Failed to resume session after reconnect", "error", err)
				_ = conn.Close()
				backoff = nextBackoff(backoff)
				continue
			}
		}

		c.reconnects.Add(1)
		c.logger.Info("WebSocket reconnected", "attempt", attempt, "resumed", resume != nil)
		c.attach(conn)
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// setResume stores the message replayed after a reconnect.
func (c *connection) setResume(data []byte) {
	c.mu.Lock()
	c.resume = data
	c.mu.Unlock()
}

// send never blocks; a full buffer drops the message.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("WebSocket send channel full, dropping messages")
		}
	}
}

func (c *connection) pending() int {
	return len(c.sendCh)
}

// sendAndWait queues data and blocks until the server acks msgType/seq.
// Acks for other messages are discarded.
func (c *connection) sendAndWait(data []byte, msgType string, seq uint64, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.Acks(msgType, seq) {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q (seq %d)", msgType, seq)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", msgType)
		}
	}
}

// close sends a close frame and stops every loop. Safe to call twice.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return conn.Close()
}
