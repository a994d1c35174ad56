// Package metrics holds the Prometheus collectors for ledger activity and
// the HTTP surface. Registries are created lazily and registered once with
// the default Prometheus registerer.
package metrics

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bitfsorg/sharestore-go/revshare"
)

const namespace = "sharestore"

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics

	httpOnce     sync.Once
	httpRegistry *HTTPMetrics
)

// LedgerMetrics tracks registry mutations and distributions.
type LedgerMetrics struct {
	distributions *prometheus.CounterVec
	distributed   *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	ledgers       prometheus.Gauge
}

// Ledger returns the singleton ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			distributions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "distributions_total",
				Help:      "Distribution attempts segmented by outcome.",
			}, []string{"outcome"}),
			distributed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "distributed_amount_total",
				Help:      "Base units paid out to holders, segmented by asset kind.",
			}, []string{"kind"}),
			mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "mutations_total",
				Help:      "Administrative ledger operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			ledgers: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "ledgers",
				Help:      "Number of ledgers in the store.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.distributions,
			ledgerRegistry.distributed,
			ledgerRegistry.mutations,
			ledgerRegistry.ledgers,
		)
	})
	return ledgerRegistry
}

// ObserveDistribution records one distribution attempt. A successful call
// with an empty pool is counted as "empty".
func (m *LedgerMetrics) ObserveDistribution(kind revshare.AssetKind, receipt *revshare.Receipt, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.distributions.WithLabelValues(Outcome(err)).Inc()
	case receipt == nil || receipt.Distributed == 0:
		m.distributions.WithLabelValues("empty").Inc()
	default:
		m.distributions.WithLabelValues("success").Inc()
		m.distributed.WithLabelValues(kindLabel(kind)).Add(float64(receipt.Distributed))
	}
}

// ObserveMutation records an administrative operation such as set_holders.
func (m *LedgerMetrics) ObserveMutation(operation string, err error) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.mutations.WithLabelValues(operation, Outcome(err)).Inc()
}

// SetLedgerCount publishes the number of stored ledgers.
func (m *LedgerMetrics) SetLedgerCount(n int) {
	if m == nil {
		return
	}
	m.ledgers.Set(float64(n))
}

// HTTPMetrics tracks API request counts and latency.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// HTTP returns the singleton HTTP metrics registry.
func HTTP() *HTTPMetrics {
	httpOnce.Do(func() {
		httpRegistry = &HTTPMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "API requests segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(httpRegistry.requests, httpRegistry.latency)
	})
	return httpRegistry
}

// Observe records a finished request.
func (m *HTTPMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// Outcome maps an error to a stable, low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, revshare.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, revshare.ErrShareStorageDisabled):
		return "disabled"
	case errors.Is(err, revshare.ErrLedgerNotFound):
		return "not_found"
	case errors.Is(err, revshare.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, revshare.ErrInvalidHolderAccounts),
		errors.Is(err, revshare.ErrInvalidHolderAccount),
		errors.Is(err, revshare.ErrInvalidTokenMint),
		errors.Is(err, revshare.ErrFrozenDestination),
		errors.Is(err, revshare.ErrWrongOwner):
		return "invalid_destination"
	default:
		return "error"
	}
}

func kindLabel(k revshare.AssetKind) string {
	if k.Fungible {
		return "fungible"
	}
	return "native"
}
