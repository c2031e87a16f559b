// Package metrics exposes Prometheus collectors for the render loop and playback.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesRendered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pumpkin_frames_rendered_total",
			Help: "Total number of composed frames",
		},
	)

	FrameErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pumpkin_frame_errors_total",
			Help: "Frames that failed to compose or deliver",
		},
	)

	ComposeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pumpkin_compose_duration_seconds",
			Help:    "Time spent composing one frame",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	Blinks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pumpkin_blinks_total",
			Help: "Total number of blinks started",
		},
	)

	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpkin_lipsync_runs_total",
			Help: "Playback runs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RunsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pumpkin_lipsync_rejected_total",
			Help: "Triggers rejected because a run was already active",
		},
	)

	FrameLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pumpkin_lipsync_frame_lag_seconds",
			Help:    "How late each viseme was applied relative to its timestamp",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
	)

	ActiveViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pumpkin_active_viewers",
			Help: "Number of connected websocket viewers",
		},
	)

	AssetReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpkin_asset_reloads_total",
			Help: "Asset reloads by result",
		},
		[]string{"result"},
	)
)
