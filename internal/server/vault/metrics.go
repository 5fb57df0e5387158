package vault

import (
	"errors"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts backend calls by operation and result.
type Metrics struct {
	operations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitcor_vault_operations_total",
				Help: "Vault backend calls by backend, operation and result.",
			},
			[]string{"backend", "op", "result"},
		),
	}
	reg.MustRegister(m.operations)
	return m
}

func (m *Metrics) observe(backend, op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		result = "not_found"
	case errors.Is(err, common.ErrVaultConflict):
		result = "conflict"
	default:
		result = "error"
	}
	m.operations.WithLabelValues(backend, op, result).Inc()
}
