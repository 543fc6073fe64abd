package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on the given registerer and served by the status
// server under /metrics.
type Metrics struct {
	ScansTotal       prometheus.Counter
	ScansDropped     prometheus.Counter
	FetchFailures    *prometheus.CounterVec
	AssetReloads     prometheus.Counter
	ControlLinesSent prometheus.Counter
	SerialEvents     *prometheus.CounterVec
	SerialReconnects prometheus.Counter
	PlaybacksTotal   prometheus.Counter
	PlaybackFailures prometheus.Counter
	PlaybackSeconds  prometheus.Gauge
	IntervalAverage  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chewsync_scans_total",
			Help: "Identifications accepted from the scanner.",
		}),
		ScansDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "chewsync_scans_dropped_total",
			Help: "Scanner lines dropped because the worker was busy.",
		}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chewsync_fetch_failures_total",
			Help: "Remote fetch failures by stage.",
		}, []string{"stage"}),
		AssetReloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "chewsync_asset_reloads_total",
			Help: "Audio asset replacements installed.",
		}),
		ControlLinesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "chewsync_control_lines_sent_total",
			Help: "Control lines written to the device.",
		}),
		SerialEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chewsync_serial_events_total",
			Help: "Serial events consumed by kind.",
		}, []string{"kind"}),
		SerialReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "chewsync_serial_reconnects_total",
			Help: "Serial port reconnect attempts that succeeded.",
		}),
		PlaybacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chewsync_playbacks_total",
			Help: "Playback segments started.",
		}),
		PlaybackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "chewsync_playback_failures_total",
			Help: "Playback segments that failed to decode or play.",
		}),
		PlaybackSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chewsync_playback_seconds",
			Help: "Duration of the most recent playback segment.",
		}),
		IntervalAverage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chewsync_interval_average_seconds",
			Help: "Current mean of the open/close interval window.",
		}),
	}
}
