package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepsnap_extractions_total",
		Help: "Total number of extraction runs, by mode and status",
	}, []string{"mode", "status"})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stepsnap_extraction_duration_seconds",
		Help:    "Duration of extraction pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stepsnap_frames_extracted_total",
		Help: "Total number of step frames captured across all runs",
	})

	ChangePointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stepsnap_change_points_total",
		Help: "Total number of raw scene changes detected while scanning",
	})

	BackfillTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stepsnap_backfill_total",
		Help: "Number of automatic runs topped up with evenly spaced frames",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stepsnap_active_workers",
		Help: "Number of workers currently extracting a video",
	})
)
