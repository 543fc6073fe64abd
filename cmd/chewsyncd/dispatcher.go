package main

import (
	"context"
	"log/slog"
	"time"
)

// Dispatcher drains the pending control line on a fixed poll tick and writes
// it to the device. Delivery is at most once: a failed write is logged and
// the line dropped, the next scan will queue a fresh one.
type Dispatcher struct {
	link    LineTransport
	state   *SharedState
	poll    time.Duration
	sink    EventSink
	metrics *Metrics
	logger  *slog.Logger
}

func NewDispatcher(link LineTransport, state *SharedState, poll time.Duration, sink EventSink, metrics *Metrics, logger *slog.Logger) *Dispatcher {
	if sink == nil {
		sink = nopSink{}
	}
	return &Dispatcher{
		link:    link,
		state:   state,
		poll:    poll,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Dispatcher) tick() {
	line, ok := d.state.PopControlLine()
	if !ok {
		return
	}
	if err := d.link.WriteLine(line.String()); err != nil {
		d.logger.Warn("control line write failed, line dropped", "line", line.String(), "error", err)
		return
	}
	d.metrics.ControlLinesSent.Inc()
	d.sink.Publish(ControlLineSentEvent{Line: line.String()})
	d.logger.Info("control line sent", "line", line.String())
}
