package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relayer"

// Metrics records one build pass. A nil *Metrics is valid and records nothing.
type Metrics struct {
	tokensConsidered prometheus.Counter
	tokensSkipped    *prometheus.CounterVec
	tokensIncluded   prometheus.Counter
	warnings         *prometheus.CounterVec
	runs             *prometheus.CounterVec
	minSettlement    prometheus.Gauge
	assumedTotal     prometheus.Gauge
	bridgeAmount     prometheus.Gauge
	buildDuration    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tokensConsidered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_considered_total",
			Help:      "Whitelisted tokens inspected by the swap builder.",
		}),
		tokensSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_skipped_total",
			Help:      "Tokens left out of the swap leg, by reason.",
		}, []string{"reason"}),
		tokensIncluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_included_total",
			Help:      "Tokens included in the swap leg.",
		}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preflight_warnings_total",
			Help:      "Preflight warnings raised during validation, by kind.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Relayer runs, by outcome.",
		}, []string{"outcome"}),
		minSettlement: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "min_settlement_out",
			Help:      "Aggregate minimum settlement output of the last plan, in base units.",
		}),
		assumedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "assumed_settlement_out",
			Help:      "Aggregate quoted settlement output of the last plan, in base units.",
		}),
		bridgeAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_amount",
			Help:      "Settlement amount quoted for the bridge leg of the last plan, in base units.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_build_seconds",
			Help:      "Wall time spent preparing an execution plan.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.tokensConsidered,
			m.tokensSkipped,
			m.tokensIncluded,
			m.warnings,
			m.runs,
			m.minSettlement,
			m.assumedTotal,
			m.bridgeAmount,
			m.buildDuration,
		)
	}
	return m
}

func (m *Metrics) TokenConsidered() {
	if m == nil {
		return
	}
	m.tokensConsidered.Inc()
}

func (m *Metrics) TokenSkipped(reason string) {
	if m == nil {
		return
	}
	m.tokensSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) TokenIncluded() {
	if m == nil {
		return
	}
	m.tokensIncluded.Inc()
}

func (m *Metrics) Warning(kind string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(kind).Inc()
}

func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSwap(minTotal, assumedTotal *big.Int) {
	if m == nil {
		return
	}
	m.minSettlement.Set(toFloat(minTotal))
	m.assumedTotal.Set(toFloat(assumedTotal))
}

func (m *Metrics) ObserveBridge(amount *big.Int) {
	if m == nil {
		return
	}
	m.bridgeAmount.Set(toFloat(amount))
}

// BuildTimer starts timing a plan build; call ObserveDuration on the result.
func (m *Metrics) BuildTimer() *prometheus.Timer {
	if m == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(m.buildDuration)
}

// Gauges are informational; contract amounts never pass through float64.
func toFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
