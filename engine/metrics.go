// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// engineMetrics holds the collectors of one Device. They are always created
// so the engine can update them unconditionally; registration is optional.
type engineMetrics struct {
	trackedVoices    prometheus.Gauge
	idleVoices       prometheus.Gauge
	voicesCreated    *prometheus.CounterVec
	voicesRecycled   prometheus.Counter
	streamUnderruns  prometheus.Counter
	streamFillErrors prometheus.Counter
	tickDuration     prometheus.Histogram

	collectors []prometheus.Collector
}

func newMetrics() *engineMetrics {
	m := &engineMetrics{
		trackedVoices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audvox_tracked_voices",
			Help: "Number of source voices currently held by callers",
		}),
		idleVoices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audvox_idle_voices",
			Help: "Number of source voices waiting in pools",
		}),
		voicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audvox_voices_created_total",
			Help: "Total number of native source voices created",
		}, []string{"kind"}),
		voicesRecycled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audvox_voices_recycled_total",
			Help: "Total number of source voices returned to a pool",
		}),
		streamUnderruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audvox_stream_underruns_total",
			Help: "Total number of ticks that found a playing stream with no queued buffers",
		}),
		streamFillErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audvox_stream_fill_errors_total",
			Help: "Total number of stream decode failures during playback",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "audvox_tick_duration_seconds",
			Help:    "Time spent in one maintenance tick",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12), // 10us to ~20ms
		}),
	}

	m.collectors = []prometheus.Collector{
		m.trackedVoices,
		m.idleVoices,
		m.voicesCreated,
		m.voicesRecycled,
		m.streamUnderruns,
		m.streamFillErrors,
		m.tickDuration,
	}
	return m
}

func (m *engineMetrics) register(reg prometheus.Registerer) error {
	return reg.Register(m)
}

// Describe implements prometheus.Collector.
func (m *engineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *engineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}
