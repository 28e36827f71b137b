// Package metrics exposes Prometheus instruments for the progression engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Arrivals counts arrival-code submissions by result.
	Arrivals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treasurehunt",
		Name:      "arrivals_total",
		Help:      "Arrival code submissions by result.",
	}, []string{"result"})

	// Answers counts answer submissions by result.
	Answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treasurehunt",
		Name:      "answers_total",
		Help:      "Answer submissions by result.",
	}, []string{"result"})

	// ActiveTeams tracks how many teams are currently activated.
	ActiveTeams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "treasurehunt",
		Name:      "active_teams",
		Help:      "Number of teams with an active game.",
	})
)
