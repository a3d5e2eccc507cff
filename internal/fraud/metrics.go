package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fraudActionsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_fraud_actions_processed_total",
		Help: "Total number of player actions run through fraud detection",
	})

	riskScoreOverall = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "poker_fraud_risk_score_overall",
		Help:    "Distribution of combined risk scores",
		Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	alertsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_fraud_alerts_generated_total",
		Help: "Total number of fraud alerts generated, by type and severity",
	}, []string{"alert_type", "severity"})
)
