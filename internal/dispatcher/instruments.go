package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/racesim/internal/dispatcher"

type instruments struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
}

// newInstruments creates the dispatcher's metrics on m. The queue gauge is
// observed from d's buffers.
func newInstruments(m metric.Meter, d *Dispatcher) (*instruments, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	var (
		ins instruments
		err error
	)

	if ins.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Events waiting in each buffered queue"),
	); err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	if _, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for cmd, n := range d.QueueSizes() {
			o.ObserveInt64(ins.queueSize, int64(n), metric.WithAttributes(commandAttr(cmd)))
		}
		return nil
	}, ins.queueSize); err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&ins.processed, "dispatcher.events.processed", "Buffered events handled"},
		{&ins.dropped, "dispatcher.events.dropped", "Events dropped on a full queue"},
		{&ins.failed, "dispatcher.events.failed", "Buffered events whose handler returned an error"},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}
	return &ins, nil
}

func commandAttr(command string) attribute.KeyValue {
	return attribute.String("command", command)
}
