package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "color_game"

// Metrics - счетчики движка раундов
type Metrics struct {
	RoundsSettled      prometheus.Counter
	SettlementFailures prometheus.Counter
	BetsPlaced         *prometheus.CounterVec
	CommissionCredits  *prometheus.CounterVec
	RoundLiability     prometheus.Histogram
	ForcedOutcomes     prometheus.Counter
}

// New - регистрирует метрики в reg. В тестах передается prometheus.NewRegistry()
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoundsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_settled_total",
			Help:      "Rounds moved to settled.",
		}),
		SettlementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_failures_total",
			Help:      "Settlement attempts that left the round in settling.",
		}),
		BetsPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_placed_total",
			Help:      "Bet placement attempts by result.",
		}, []string{"result"}),
		CommissionCredits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_credits_total",
			Help:      "Referral commission credits by status.",
		}, []string{"status"}),
		RoundLiability: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_liability",
			Help:      "Total payout of the selected outcome.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		ForcedOutcomes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_outcomes_total",
			Help:      "Rounds settled with an operator-set outcome.",
		}),
	}

	reg.MustRegister(
		m.RoundsSettled,
		m.SettlementFailures,
		m.BetsPlaced,
		m.CommissionCredits,
		m.RoundLiability,
		m.ForcedOutcomes,
	)
	return m
}

// ObserveLiability - decimal в гистограмму
func (m *Metrics) ObserveLiability(v decimal.Decimal) {
	f, _ := v.Float64()
	m.RoundLiability.Observe(f)
}
