package farm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts contract calls and stake requests. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Transactions *prometheus.CounterVec
	Requests     *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg, if reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm",
			Name:      "transactions_total",
			Help:      "Contract calls by function and observed status",
		}, []string{"function", "status"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm",
			Name:      "requests_total",
			Help:      "Stake requests by phase entered",
		}, []string{"phase"}),
	}
	if reg != nil {
		reg.MustRegister(m.Transactions, m.Requests)
	}
	return m
}

func (m *Metrics) observeTx(function string, status Status) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(function, status.String()).Inc()
}

func (m *Metrics) observePhase(phase Phase) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(phase.String()).Inc()
}
