// Package metrics exports service telemetry to Prometheus.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QuestionSource labels where a question set came from.
type QuestionSource string

const (
	SourceModel    QuestionSource = "model"
	SourceDefaults QuestionSource = "defaults"
)

// Observer captures telemetry for question generation and cleanup. A nil
// *PrometheusObserver is a valid no-op Observer.
type Observer interface {
	RecordGeneration(source QuestionSource, duration time.Duration)
	RecordParseTier(tier string)
	RecordSweep(tempUpdates, sessions int)
	RecordRequest(route, method string, status int, duration time.Duration)
}

// PrometheusObserver exports follow-up service metrics to Prometheus.
type PrometheusObserver struct {
	generationDuration *prometheus.HistogramVec
	parseTiers         *prometheus.CounterVec
	sweepDeletions     *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

// NewPrometheusObserver registers the service metrics on reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "checkin"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "question_generation_duration_seconds",
			Help:      "Latency for follow-up question generation, labeled by outcome source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		parseTiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_parse_tier_total",
			Help:      "Which parsing strategy extracted questions from a model response.",
		}, []string{"tier"}),
		sweepDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_deletions_total",
			Help:      "Records removed by the abandoned-update sweeper.",
		}, []string{"kind"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	collectors := []prometheus.Collector{
		observer.generationDuration, observer.parseTiers, observer.sweepDeletions, observer.requestDuration,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return observer, nil
}

func (o *PrometheusObserver) RecordGeneration(source QuestionSource, duration time.Duration) {
	if o == nil {
		return
	}
	o.generationDuration.WithLabelValues(string(source)).Observe(duration.Seconds())
}

func (o *PrometheusObserver) RecordParseTier(tier string) {
	if o == nil {
		return
	}
	o.parseTiers.WithLabelValues(tier).Inc()
}

func (o *PrometheusObserver) RecordSweep(tempUpdates, sessions int) {
	if o == nil {
		return
	}
	o.sweepDeletions.WithLabelValues("temp_updates").Add(float64(tempUpdates))
	o.sweepDeletions.WithLabelValues("sessions").Add(float64(sessions))
}

func (o *PrometheusObserver) RecordRequest(route, method string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	o.requestDuration.WithLabelValues(route, method, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
}

// Nop returns an Observer that records nothing.
func Nop() Observer {
	return (*PrometheusObserver)(nil)
}
