package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ============================================================================
// Serial event worker
// ============================================================================
// Consumes "open"/"close" lines from the device, matched case-insensitively.
// An "open" arms a segment and stamps the time; the matching "close" measures
// the interval, feeds the moving-average window, derives the segment duration
// from the configured policy, extracts that many frames from the audio asset
// ring and plays them to completion before reading the next line.
//
// A "close" with nothing armed still plays: the policy falls back to its
// fixed or fallback duration, so a device that only reports closures keeps
// producing sound. A second "open" while armed simply re-stamps.
//
// The asset handle is opened lazily and reopened whenever the fetch worker
// has signalled a reload. Reads that fail mid-segment drop the handle so the
// next segment reopens from disk.
// ============================================================================

type SerialEventWorker struct {
	link    LineTransport
	player  Player
	state   *SharedState
	history *IntervalHistory
	policy  DurationPolicy
	sink    EventSink
	metrics *Metrics
	logger  *slog.Logger

	assetPath string
	asset     AudioAsset

	armed   bool
	armedAt time.Time

	// Injectable for interval tests.
	now func() time.Time
}

func NewSerialEventWorker(link LineTransport, player Player, state *SharedState, policy DurationPolicy, assetPath string, sink EventSink, metrics *Metrics, logger *slog.Logger) *SerialEventWorker {
	if sink == nil {
		sink = nopSink{}
	}
	return &SerialEventWorker{
		link:      link,
		player:    player,
		state:     state,
		history:   NewIntervalHistory(defaultIntervalWindow),
		policy:    policy,
		sink:      sink,
		metrics:   metrics,
		logger:    logger,
		assetPath: assetPath,
		now:       time.Now,
	}
}

// History exposes the interval window for the status command.
func (w *SerialEventWorker) History() *IntervalHistory { return w.history }

// Run loops until ctx is done. Transport errors trigger a reconnect; they
// never terminate the worker.
func (w *SerialEventWorker) Run(ctx context.Context) error {
	defer w.closeAsset()
	for {
		line, err := w.link.ReadLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("serial link lost", "error", err)
			if err := w.link.Reconnect(ctx); err != nil {
				return err
			}
			w.metrics.SerialReconnects.Inc()
			continue
		}
		w.handleLine(line)
	}
}

func (w *SerialEventWorker) handleLine(line string) {
	if line == "" {
		return
	}
	w.sink.Publish(DeviceLineEvent{Line: line})

	switch strings.ToLower(line) {
	case "open":
		w.metrics.SerialEvents.WithLabelValues("open").Inc()
		w.armed = true
		w.armedAt = w.now()
		w.logger.Debug("segment armed")
	case "close":
		w.metrics.SerialEvents.WithLabelValues("close").Inc()
		if w.armed {
			w.armed = false
			interval := w.now().Sub(w.armedAt).Seconds()
			w.history.Append(interval)
			if avg, ok := w.history.Average(); ok {
				w.metrics.IntervalAverage.Set(avg)
			}
			w.logger.Debug("interval measured", "seconds", interval)
		} else {
			w.logger.Warn("close without prior open, playing with fallback duration")
		}
		w.playSegment()
	default:
		w.metrics.SerialEvents.WithLabelValues("other").Inc()
		w.logger.Debug("unrecognized device line", "line", line)
	}
}

func (w *SerialEventWorker) playSegment() {
	if err := w.ensureAsset(); err != nil {
		w.metrics.PlaybackFailures.Inc()
		w.logger.Error("audio asset unavailable", "path", w.assetPath, "error", err)
		return
	}

	seconds := w.policy.Duration(w.history)
	format := w.asset.Format()
	frames := int64(seconds * float64(format.FrameRate))
	if frames <= 0 {
		return
	}

	pcm, err := w.asset.ReadFrames(frames)
	if err != nil {
		w.metrics.PlaybackFailures.Inc()
		w.logger.Error("frame extraction failed", "error", err)
		w.closeAsset() // reopen from disk next segment
		return
	}

	if id, p, ok := w.state.ParamsSnapshot(); ok {
		w.logger.Debug("playing segment", "id", id,
			"chewiness", p.Chewiness, "firmness", p.Firmness, "seconds", seconds)
	}

	w.metrics.PlaybacksTotal.Inc()
	w.metrics.PlaybackSeconds.Set(seconds)
	w.sink.Publish(PlaybackStartedEvent{Seconds: seconds, Frames: frames})

	if err := w.player.Play(pcm, format); err != nil {
		w.metrics.PlaybackFailures.Inc()
		w.logger.Error("playback failed", "error", err)
		return
	}
	w.sink.Publish(PlaybackFinishedEvent{Seconds: seconds})
}

// ensureAsset opens the asset on first use and reopens it after a reload
// signal. The consume-and-clear on the flag means a reload observed here is
// acted on exactly once.
func (w *SerialEventWorker) ensureAsset() error {
	if w.state.ConsumeReload() {
		w.closeAsset()
	}
	if w.asset != nil {
		return nil
	}
	asset, err := OpenWaveAsset(w.assetPath)
	if err != nil {
		return fmt.Errorf("open audio asset: %w", err)
	}
	w.asset = asset
	w.logger.Info("audio asset opened", "path", w.assetPath,
		"frames", asset.TotalFrames(), "rate", asset.Format().FrameRate)
	return nil
}

func (w *SerialEventWorker) closeAsset() {
	if w.asset == nil {
		return
	}
	if err := w.asset.Close(); err != nil {
		w.logger.Warn("closing audio asset", "error", err)
	}
	w.asset = nil
}
