package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "arbor"

// Metrics holds the collectors fed by the editor hooks.
type Metrics struct {
	Operations    *prometheus.CounterVec
	History       *prometheus.CounterVec
	Expansion     prometheus.Histogram
	Problems      prometheus.Gauge
	OpenDocuments prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg registers nothing, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Edit operations by kind and result.",
			},
			[]string{"op", "result"},
		),
		History: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_moves_total",
				Help:      "Undo and redo steps applied.",
			},
			[]string{"direction"},
		),
		Expansion: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "expansion_duration_seconds",
				Help:      "Duration of subtree expansion passes.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
		),
		Problems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "expansion_problems",
				Help:      "Unresolved subtrees found by the last expansion pass.",
			},
		),
		OpenDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_documents",
				Help:      "Documents currently open for editing.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.History, m.Expansion, m.Problems, m.OpenDocuments)
	}
	return m
}

// Hooks returns the callbacks that record into m.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnChange: func(_ context.Context, e *domain.ChangeEvent) {
			switch e.Type {
			case domain.EventUndo, domain.EventRedo:
				m.History.WithLabelValues(string(e.Type)).Inc()
			case domain.EventReject:
				m.Operations.WithLabelValues(e.Op, "rejected").Inc()
			default:
				m.Operations.WithLabelValues(e.Op, "ok").Inc()
			}
		},
		OnExpand: func(_ context.Context, e *domain.ExpandEvent) {
			m.Expansion.Observe(e.Duration.Seconds())
			m.Problems.Set(float64(e.Problems))
		},
		OnOpen: func(context.Context, *domain.EventBase) {
			m.OpenDocuments.Inc()
		},
		OnClose: func(context.Context, *domain.EventBase) {
			m.OpenDocuments.Dec()
		},
	}
}
