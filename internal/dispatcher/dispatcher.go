// Package dispatcher routes race events to handlers by command name. A
// handler runs inline, or behind a bounded queue drained by its own
// goroutine.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrQueueFull is returned when a non-blocking queue has no room.
	ErrQueueFull = errors.New("queue full")
)

// Event is one notification from the race, addressed by command.
type Event struct {
	Command   string
	Payload   any
	Timestamp time.Time
}

// NewEvent stamps an event with the current time.
func NewEvent(command string, payload any) Event {
	return Event{Command: command, Payload: payload, Timestamp: time.Now()}
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is satisfied by logging.KVLogger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) { c.bufferSize = size }
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) { c.blocking = true }
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) { c.logged = true }
}

// Stats counts what happened to one command's events.
type Stats struct {
	Queued    int
	Processed int64
	Dropped   int64
	Failed    int64
}

type queue struct {
	events    chan Event
	processed atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// Dispatcher routes events to registered handlers. Register every handler
// before the first Dispatch.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger
	metrics  *instruments

	mu      sync.RWMutex
	queues  map[string]*queue
	closed  bool
	pending atomic.Int64 // queued or in-flight buffered events
	workers sync.WaitGroup
}

// New creates a Dispatcher reporting to the global OTel meter, which is a
// no-op unless the process installs a provider.
func New(logger Logger) (*Dispatcher, error) {
	return NewWithMeter(logger, nil)
}

// NewWithMeter is New with an explicit meter.
func NewWithMeter(logger Logger, m metric.Meter) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]*queue),
		logger:   logger,
	}
	ins, err := newInstruments(m, d)
	if err != nil {
		return nil, err
	}
	d.metrics = ins
	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(command, handler)
	}
	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg.bufferSize, cfg.blocking, handler)
	}
	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler. Buffered handlers
// return "queued" immediately.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	return h(e)
}

// QueueSizes reports the number of events waiting in each buffered queue.
func (d *Dispatcher) QueueSizes() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sizes := make(map[string]int, len(d.queues))
	for cmd, q := range d.queues {
		sizes[cmd] = len(q.events)
	}
	return sizes
}

// Stats snapshots the counters of every buffered command.
func (d *Dispatcher) Stats() map[string]Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]Stats, len(d.queues))
	for cmd, q := range d.queues {
		out[cmd] = Stats{
			Queued:    len(q.events),
			Processed: q.processed.Load(),
			Dropped:   q.dropped.Load(),
			Failed:    q.failed.Load(),
		}
	}
	return out
}

// Flush waits until every buffered event dispatched so far has been handled.
func (d *Dispatcher) Flush(ctx context.Context) error {
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for d.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

// Close stops accepting events, drains the queues and waits for the
// buffered handlers to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q.events)
	}
	d.mu.Unlock()
	d.workers.Wait()
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := &queue{events: make(chan Event, size)}
	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	attrs := metric.WithAttributes(commandAttr(command))

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range q.events {
			if _, err := h(e); err != nil {
				// first failure, then every power of two
				if n := q.failed.Add(1); n&(n-1) == 0 {
					d.logger.Error("buffered event failed", "command", command, "failures", n, "error", err)
				}
				d.metrics.failed.Add(context.Background(), 1, attrs)
			}
			q.processed.Add(1)
			d.metrics.processed.Add(context.Background(), 1, attrs)
			d.pending.Add(-1)
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			d.pending.Add(1)
			q.events <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		d.pending.Add(1)
		select {
		case q.events <- e:
			return "queued", nil
		default:
			d.pending.Add(-1)
			q.dropped.Add(1)
			d.metrics.dropped.Add(context.Background(), 1, attrs)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "payload", fmt.Sprintf("%T", e.Payload))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}
		return result, err
	}
}
