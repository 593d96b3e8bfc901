// Package observability bundles the Prometheus metrics for the inventory
// core and wires them into an HTTP exposition handler.
package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the core's Prometheus metrics. It satisfies the
// services' Metrics interface.
type Collector struct {
	gatherer prometheus.Gatherer

	LedgerAdjustments *prometheus.CounterVec
	SagaOutcomes      *prometheus.CounterVec
	StoreLatency      *prometheus.HistogramVec
}

// NewCollector registers the inventory metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_adjustments_total",
		Help: "Quantity adjustments handled by the availability ledger, labeled by operation and outcome.",
	}, []string{"op", "outcome"})
	adjustments, err := registerCounterVec(reg, adjustments)
	if err != nil {
		return nil, err
	}

	sagas := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_saga_total",
		Help: "Shipment create sagas by final outcome: committed, compensated, or orphaned.",
	}, []string{"outcome"})
	sagas, err = registerCounterVec(reg, sagas)
	if err != nil {
		return nil, err
	}

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_roundtrip_duration_seconds",
		Help:    "Durable store round-trip latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"op"})
	latency, err = registerHistogramVec(reg, latency)
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		LedgerAdjustments: adjustments,
		SagaOutcomes:      sagas,
		StoreLatency:      latency,
	}, nil
}

func (c *Collector) LedgerAdjustment(op, outcome string) {
	c.LedgerAdjustments.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) SagaOutcome(outcome string) {
	c.SagaOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveStore records one durable-store round trip.
func (c *Collector) ObserveStore(op string, d time.Duration) {
	c.StoreLatency.WithLabelValues(op).Observe(d.Seconds())
}

// Handler returns the Prometheus exposition handler for this collector's
// gatherer.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return cv, nil
}

func registerHistogramVec(reg prometheus.Registerer, hv *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := reg.Register(hv); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return hv, nil
}
