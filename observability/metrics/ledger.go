package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	positionsMinted  prometheus.Counter
	yieldClaims      *prometheus.CounterVec
	totalPrincipal   prometheus.Gauge
	oracleUpdates    *prometheus.CounterVec
	insuranceActions *prometheus.CounterVec
	poolStaked       prometheus.Gauge
	marketTrades     prometheus.Counter
	marketVolume     prometheus.Counter
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			positionsMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "relic_vault_positions_minted_total",
				Help: "Count of time-locked positions opened through the vault.",
			}),
			yieldClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "relic_vault_yield_claims_total",
				Help: "Count of settled yield claims by fee outcome.",
			}, []string{"outcome"}),
			totalPrincipal: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "relic_vault_total_principal",
				Help: "Lifetime gross principal recorded by the vault, in stable units.",
			}),
			oracleUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "relic_oracle_updates_total",
				Help: "Count of accepted oracle multiplier changes by kind.",
			}, []string{"kind"}),
			insuranceActions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "relic_insurance_actions_total",
				Help: "Count of insurance pool operations by action.",
			}, []string{"action"}),
			poolStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "relic_insurance_total_staked",
				Help: "Stable units currently bonded into the insurance pool.",
			}),
			marketTrades: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "relic_market_trades_total",
				Help: "Count of settled marketplace trades.",
			}),
			marketVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "relic_market_volume_total",
				Help: "Cumulative marketplace volume in stable units.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.positionsMinted,
			ledgerRegistry.yieldClaims,
			ledgerRegistry.totalPrincipal,
			ledgerRegistry.oracleUpdates,
			ledgerRegistry.insuranceActions,
			ledgerRegistry.poolStaked,
			ledgerRegistry.marketTrades,
			ledgerRegistry.marketVolume,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObservePositionMinted() {
	if m == nil {
		return
	}
	m.positionsMinted.Inc()
}

func (m *LedgerMetrics) ObserveYieldClaim(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "base"
	}
	m.yieldClaims.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) SetTotalPrincipal(amount float64) {
	if m == nil {
		return
	}
	m.totalPrincipal.Set(amount)
}

func (m *LedgerMetrics) ObserveOracleUpdate(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "single"
	}
	m.oracleUpdates.WithLabelValues(kind).Inc()
}

func (m *LedgerMetrics) ObserveInsuranceAction(action string) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.insuranceActions.WithLabelValues(action).Inc()
}

func (m *LedgerMetrics) SetPoolStaked(amount float64) {
	if m == nil {
		return
	}
	m.poolStaked.Set(amount)
}

func (m *LedgerMetrics) ObserveTrade(volume float64) {
	if m == nil {
		return
	}
	m.marketTrades.Inc()
	if volume > 0 {
		m.marketVolume.Add(volume)
	}
}
