package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts source loads and edits per dataset.
type Metrics struct {
	SourceLoads *prometheus.CounterVec
	Edits       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SourceLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bondweb",
			Name:      "source_loads_total",
			Help:      "Record set loads by dataset and result.",
		}, []string{"dataset", "result"}),
		Edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bondweb",
			Name:      "edits_total",
			Help:      "Successful mutations by dataset and action.",
		}, []string{"dataset", "action"}),
	}
	if reg != nil {
		reg.MustRegister(m.SourceLoads, m.Edits)
	}
	return m
}

func (m *Metrics) load(dataset string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SourceLoads.WithLabelValues(dataset, result).Inc()
}

func (m *Metrics) edit(dataset string, action AuditAction) {
	m.Edits.WithLabelValues(dataset, string(action)).Inc()
}
