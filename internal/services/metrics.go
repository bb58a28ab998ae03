package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/localnerve/jam-build-nodedb/internal/types"
)

var (
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodedb",
		Name:      "mutations_total",
		Help:      "Node mutations by operation and outcome kind.",
	}, []string{"operation", "outcome"})

	historyEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodedb",
		Name:      "history_entries_total",
		Help:      "Audit entries appended by action.",
	}, []string{"action"})
)

// observe counts a finished mutation. Success is reported as "ok", failures
// by error kind.
func observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = types.KindName(err)
	}
	mutations.WithLabelValues(operation, outcome).Inc()
}
