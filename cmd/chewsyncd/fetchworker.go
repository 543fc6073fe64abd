package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// ============================================================================
// Asset fetch worker
// ============================================================================
// Consumes identifications from the scanner (and from IPC injections), and
// for each new target runs two independent fetches: the audio asset
// (installed atomically, playback side signalled to reload) and the mapping
// parameters (posted as a control line for the dispatcher). Neither fetch
// gates the other.
//
// Duplicate suppression is keyed on the last successfully installed target:
// re-scanning the same identifier is a no-op until a different one appears.
// An asset fetch failure leaves the key unchanged so the next scan of the
// same target retries; a parameter fetch failure after a successful install
// does not, since the asset swap already happened.
// ============================================================================

type AssetFetchWorker struct {
	source  IdentificationSource
	assets  *AssetFetcher
	params  *ParamClient
	state   *SharedState
	sink    EventSink
	metrics *Metrics
	logger  *slog.Logger

	inject chan Scan
	lastID string
}

func NewAssetFetchWorker(source IdentificationSource, assets *AssetFetcher, params *ParamClient, state *SharedState, sink EventSink, metrics *Metrics, logger *slog.Logger) *AssetFetchWorker {
	if sink == nil {
		sink = nopSink{}
	}
	return &AssetFetchWorker{
		source:  source,
		assets:  assets,
		params:  params,
		state:   state,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		inject:  make(chan Scan, 4),
	}
}

// Inject feeds an identification as if the scanner had produced it. Used by
// the IPC inject_identification command.
func (w *AssetFetchWorker) Inject(ctx context.Context, text string) error {
	select {
	case w.inject <- Scan{Text: text, Area: injectedScanArea}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run loops until ctx is done. Source polling happens on a pump goroutine so
// injected identifications are never starved by a blocked Poll.
func (w *AssetFetchWorker) Run(ctx context.Context) error {
	scans := make(chan Scan, 1)
	go w.pump(ctx, scans)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-w.inject:
			w.handleScan(ctx, s)
		case s := <-scans:
			w.handleScan(ctx, s)
		}
	}
}

func (w *AssetFetchWorker) pump(ctx context.Context, out chan<- Scan) {
	for {
		s, ok, err := w.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("identification source error", "error", err)
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- s:
		case <-ctx.Done():
			return
		}
	}
}

func (w *AssetFetchWorker) handleScan(ctx context.Context, s Scan) {
	scanID := uuid.NewString()
	w.metrics.ScansTotal.Inc()
	w.sink.Publish(ScanDetectedEvent{ScanID: scanID, Text: s.Text, Area: s.Area})

	if s.Text == w.lastID {
		w.logger.Debug("duplicate identification ignored", "id", s.Text)
		return
	}
	w.logger.Info("new identification", "id", s.Text, "area", s.Area, "scan_id", scanID)

	// The two fetches are independent: a failed asset download does not block
	// the parameter fetch, so a control line can still go out for a target
	// whose audio never arrived.
	if err := w.assets.Fetch(ctx, s.Text); err != nil {
		w.metrics.FetchFailures.WithLabelValues("asset").Inc()
		w.sink.Publish(FetchFailedEvent{ID: s.Text, Stage: "asset", Error: err.Error()})
		w.logger.Error("asset fetch failed", "id", s.Text, "error", err)
	} else {
		w.lastID = s.Text
		w.state.SignalReload()
		w.metrics.AssetReloads.Inc()

		path := w.assets.AssetPath()
		var size int64
		if fi, err := os.Stat(path); err == nil {
			size = fi.Size()
		}
		w.sink.Publish(AssetReloadedEvent{ID: s.Text, Path: path, Bytes: size})
		w.logger.Info("audio asset installed", "id", s.Text, "path", path, "bytes", size)
	}

	p, err := w.params.Fetch(ctx, s.Text)
	if err != nil {
		w.metrics.FetchFailures.WithLabelValues("params").Inc()
		w.sink.Publish(FetchFailedEvent{ID: s.Text, Stage: "params", Error: err.Error()})
		w.logger.Error("parameter fetch failed", "id", s.Text, "error", err)
		return
	}
	line := mapParameters(p.Chewiness, p.Firmness)
	w.state.SetParams(s.Text, p)
	w.state.SetControlLine(line)

	w.sink.Publish(ParametersAppliedEvent{
		ID:        s.Text,
		Chewiness: p.Chewiness,
		Firmness:  p.Firmness,
		Line:      line.String(),
	})
	w.logger.Info("parameters applied", "id", s.Text,
		"chewiness", p.Chewiness, "firmness", p.Firmness, "line", line.String())
}
