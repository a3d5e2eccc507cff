package tournament

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playersEliminatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_tournament_players_eliminated_total",
		Help: "Total number of tournament participants eliminated or banned.",
	}, []string{"reason"})

	tablesBalancedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_tournament_tables_balanced_total",
		Help: "Total number of single-player balancing transfers performed.",
	})

	tablesMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_tournament_tables_merged_total",
		Help: "Total number of tables closed by consolidation merges.",
	})

	completedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_tournament_completed_total",
		Help: "Total number of tournaments that reached completion.",
	})
)
