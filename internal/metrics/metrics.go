// Package metrics declares the prometheus counters the core engines
// increment. Exposition is left to the embedding application; everything
// registers on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campsite_status_transitions_total",
		Help: "Successful booking status transitions by edge.",
	}, []string{"from", "to"})

	BlockedConfirmations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campsite_blocked_confirmations_total",
		Help: "Confirmations refused because of a facility clash.",
	})

	PullRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campsite_pull_rows_total",
		Help: "Reconciliation rows by outcome.",
	}, []string{"outcome"})

	Archived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campsite_archived_bookings_total",
		Help: "Terminal bookings moved to the archive partition.",
	})
)
