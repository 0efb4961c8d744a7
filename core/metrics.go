// Package core provides the fundamental building blocks of the mango ODM.
// This file defines the Prometheus collectors exported by the pool and the
// operation pipeline. Collectors register on the default registry; an
// application exposing promhttp gets them for free.
package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	poolConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mango",
		Subsystem: "pool",
		Name:      "open_connections",
		Help:      "Number of open driver connections held by the pool.",
	})

	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mango",
		Name:      "operations_total",
		Help:      "Operations dispatched through the pipeline, by kind and status.",
	}, []string{"operation", "status"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mango",
		Name:      "operation_duration_seconds",
		Help:      "Operation latency through the pipeline, by kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)
