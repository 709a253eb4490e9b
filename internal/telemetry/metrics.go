package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/streamdeckx/internal/dispatch"
)

const namespace = "streamdeckx"

// Metrics holds the Prometheus collectors for executions and decks.
type Metrics struct {
	executions *prometheus.CounterVec
	actions    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	decks      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "button_executions_total",
			Help:      "Button executions by trigger source and result.",
		}, []string{"source", "result"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_executed_total",
			Help:      "Actions that completed, by trigger source.",
		}, []string{"source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "button_execution_duration_seconds",
			Help:      "Wall time of button executions.",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"source"}),
		decks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "decks_attached",
			Help:      "Decks currently bound to hardware.",
		}),
	}

	var err error
	if m.executions, err = Register(reg, m.executions); err != nil {
		return nil, err
	}
	if m.actions, err = Register(reg, m.actions); err != nil {
		return nil, err
	}
	if m.duration, err = Register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.decks, err = Register(reg, m.decks); err != nil {
		return nil, err
	}
	return m, nil
}

// Register adds c to reg. A collector registered earlier under the same
// descriptor is reused.
func Register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("registering metrics: %w", err)
}

// ObserveExecution records one execution.
func (m *Metrics) ObserveExecution(e dispatch.Execution) {
	result := "ok"
	if e.Failed() {
		result = "failed"
	}
	source := string(e.Source)
	m.executions.WithLabelValues(source, result).Inc()
	m.actions.WithLabelValues(source).Add(float64(e.ActionsRun))
	m.duration.WithLabelValues(source).Observe(e.Duration.Seconds())
}

// SetAttached sets the number of attached decks.
func (m *Metrics) SetAttached(n int) {
	m.decks.Set(float64(n))
}
