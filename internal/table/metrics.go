package table

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnTimerFiresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_table_turn_timer_fires_total",
		Help: "Total number of turn timers that fired and drove an auto-action.",
	}, []string{"variant"})

	handDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poker_table_hand_duration_seconds",
		Help:    "Wall-clock time from hand start to settlement.",
		Buckets: prometheus.DefBuckets,
	}, []string{"variant"})
)
