// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wealthwise_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wealthwise_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	settlementsProposed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wealthwise_settlements_proposed_total",
		Help: "Settlements proposed.",
	})

	settlementResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wealthwise_settlement_responses_total",
		Help: "Settlement responses by outcome.",
	}, []string{"outcome"})

	settlementConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wealthwise_settlement_conflicts_total",
		Help: "Responses rejected because the settlement was no longer pending.",
	})

	balanceRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wealthwise_balance_recomputes_total",
		Help: "Times balances were recomputed from the expense log.",
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SettlementProposed counts a new pending settlement.
func SettlementProposed() {
	settlementsProposed.Inc()
}

// SettlementResponded counts a confirm or reject decision.
func SettlementResponded(outcome string) {
	settlementResponses.WithLabelValues(outcome).Inc()
}

// SettlementConflict counts a lost response race.
func SettlementConflict() {
	settlementConflicts.Inc()
}

// BalanceRecomputed counts a full recompute of group balances.
func BalanceRecomputed() {
	balanceRecomputes.Inc()
}
