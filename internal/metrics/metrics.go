// Package metrics регистрирует метрики Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ContractTransitions считает переходы контрактов по статусам.
	ContractTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_contract_transitions_total",
		Help: "Количество переходов контрактов между статусами",
	}, []string{"from", "to"})

	// MilestonesReleased считает выплаченные вехи.
	MilestonesReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escrow_milestones_released_total",
		Help: "Количество выплаченных вех",
	})

	// DisputesOpened считает открытые споры.
	DisputesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escrow_disputes_opened_total",
		Help: "Количество открытых споров",
	})

	// StripeCalls считает обращения к Stripe по операциям и результату.
	StripeCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_stripe_calls_total",
		Help: "Количество обращений к Stripe",
	}, []string{"operation", "result"})

	// HTTPRequestDuration измеряет длительность HTTP запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "escrow_http_request_duration_seconds",
		Help:    "Длительность HTTP запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
