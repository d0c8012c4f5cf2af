// Package metrics exposes production and HTTP telemetry as Prometheus metrics.
package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hylla/shopfloor/internal/domain"
)

const namespace = "shopfloor"

// PrometheusRecorder records stage, checklist, run, and HTTP metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	transitions   *prom.CounterVec
	timerSegments *prom.HistogramVec
	checklistOps  *prom.CounterVec
	runsPublished prom.Counter
	httpRequests  *prom.CounterVec
	httpDuration  *prom.HistogramVec
	httpInFlight  prom.Gauge
}

// NewPrometheusRecorder constructs and registers metrics on reg. A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Stage status transitions by kind",
		}, []string{"kind", "from", "to"}),
		timerSegments: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "timer_segment_seconds",
			Help:      "Length of closed stage timer segments",
			Buckets:   []float64{30, 60, 300, 900, 1800, 3600, 7200, 14400, 28800},
		}, []string{"kind"}),
		checklistOps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "checklist_operations_total",
			Help:      "Checklist operations by type",
		}, []string{"op"}),
		runsPublished: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_published_total",
			Help:      "Production runs published to the board",
		}),
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served",
		}),
	}
	reg.MustRegister(pr.transitions, pr.timerSegments, pr.checklistOps, pr.runsPublished, pr.httpRequests, pr.httpDuration, pr.httpInFlight)
	return pr
}

// Registry returns the registry the recorder writes to.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

func (p *PrometheusRecorder) ObserveStageTransition(kind domain.StageKind, from, to domain.StageStatus) {
	if p == nil {
		return
	}
	p.transitions.WithLabelValues(string(kind), string(from), string(to)).Inc()
}

func (p *PrometheusRecorder) ObserveTimerSegment(kind domain.StageKind, d time.Duration) {
	if p == nil || d <= 0 {
		return
	}
	p.timerSegments.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncChecklistOp(op string) {
	if p == nil {
		return
	}
	p.checklistOps.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) IncRunPublished() {
	if p == nil {
		return
	}
	p.runsPublished.Inc()
}
