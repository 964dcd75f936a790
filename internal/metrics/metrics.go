// Package metrics exposes Prometheus counters/gauges for the pipeline's
// resilience primitives and processing outcomes. The Recorder is nil-safe
// so callers never have to branch on whether metrics are configured.
package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder records every observable outcome of one pipeline run. A nil
// *Recorder is safe to call methods on (every method is a no-op), so
// instrumentation call sites never need a nil check of their own.
type Recorder struct {
	once sync.Once

	ocrCalls         *prom.CounterVec
	ocrDuration      prom.Histogram
	breakerTrips     *prom.CounterVec
	dlqDepth         prom.Gauge
	selectionScore   prom.Histogram
	selectionOutcome *prom.CounterVec
	guardrailStops   *prom.CounterVec
	auditOutcomes    *prom.CounterVec
}

// NewRecorder constructs and registers the pipeline's metrics against reg
// (a fresh *prometheus.Registry is created if reg is nil).
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{}
	r.once.Do(func() {
		r.ocrCalls = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "auditpipeline",
			Name:      "ocr_calls_total",
			Help:      "OCR adapter calls by result (success/failure/circuit_breaker_open)",
		}, []string{"result"})
		r.ocrDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "auditpipeline",
			Name:      "ocr_duration_seconds",
			Help:      "OCR adapter call duration",
			Buckets:   prom.DefBuckets,
		})
		r.breakerTrips = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "auditpipeline",
			Name:      "breaker_trips_total",
			Help:      "Circuit breaker OPEN transitions by upstream",
		}, []string{"upstream"})
		r.dlqDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: "auditpipeline",
			Name:      "dlq_depth",
			Help:      "Current dead-letter queue entry count",
		})
		r.selectionScore = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "auditpipeline",
			Name:      "selection_score",
			Help:      "Top-candidate selection score distribution",
			Buckets:   []float64{0, 20, 40, 60, 70, 80, 90, 100},
		})
		r.selectionOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "auditpipeline",
			Name:      "selection_outcomes_total",
			Help:      "Selections by confidence band",
		}, []string{"band"})
		r.guardrailStops = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "auditpipeline",
			Name:      "guardrail_stops_total",
			Help:      "Guardrail stop-behavior occurrences by reason id",
		}, []string{"reason"})
		r.auditOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "auditpipeline",
			Name:      "audit_outcomes_total",
			Help:      "Completed audit runs by overall result",
		}, []string{"result"})
		reg.MustRegister(r.ocrCalls, r.ocrDuration, r.breakerTrips, r.dlqDepth,
			r.selectionScore, r.selectionOutcome, r.guardrailStops, r.auditOutcomes)
	})
	return r
}

func (r *Recorder) ObserveOCRCall(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.ocrCalls.WithLabelValues(result).Inc()
	r.ocrDuration.Observe(d.Seconds())
}

func (r *Recorder) ObserveBreakerTrip(upstream string) {
	if r == nil {
		return
	}
	r.breakerTrips.WithLabelValues(upstream).Inc()
}

func (r *Recorder) SetDLQDepth(n int) {
	if r == nil {
		return
	}
	r.dlqDepth.Set(float64(n))
}

func (r *Recorder) ObserveSelection(score float64, band string) {
	if r == nil {
		return
	}
	r.selectionScore.Observe(score)
	r.selectionOutcome.WithLabelValues(band).Inc()
}

func (r *Recorder) ObserveGuardrailStops(reasons []string) {
	if r == nil {
		return
	}
	for _, reason := range reasons {
		r.guardrailStops.WithLabelValues(reason).Inc()
	}
}

func (r *Recorder) ObserveAuditOutcome(result string) {
	if r == nil {
		return
	}
	r.auditOutcomes.WithLabelValues(result).Inc()
}
