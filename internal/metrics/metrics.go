// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package metrics exposes the node's Prometheus instrumentation: cache
// mutation outcomes, dispatch results, retry counts, connection counts,
// and broker forwards.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheOperations counts every Add/Remove/Update call by outcome,
	// grounded on the node's need to distinguish clean mutations from
	// synchronization conflicts in production dashboards.
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areanode_cache_operations_total",
			Help: "Total cache mutation attempts by operation and result",
		},
		[]string{"op", "result"},
	)

	// CacheVersion exposes the cache's monotonic version counter as a
	// gauge, useful for spotting a shard that has gone quiet.
	CacheVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "areanode_cache_version",
			Help: "Current cache-version counter for a shard",
		},
		[]string{"shard"},
	)

	// DispatchRequests counts processed requests by (category,method) and
	// result code.
	DispatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areanode_dispatch_requests_total",
			Help: "Total dispatched requests by type and result",
		},
		[]string{"category", "method", "result"},
	)

	// DispatchRetries counts requests that resolved to retry_later due to
	// a synchronization or transaction conflict.
	DispatchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areanode_dispatch_retries_total",
			Help: "Total requests that resulted in retry_later",
		},
		[]string{"category", "method"},
	)

	// DispatchDuration observes end-to-end handler latency.
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "areanode_dispatch_duration_seconds",
			Help:    "Duration of request dispatch in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category", "method"},
	)

	// ConnectedClients tracks currently connected, authenticated clients.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "areanode_connected_clients",
			Help: "Current number of authenticated client connections",
		},
	)

	// BrokerForwards counts cross-area forward attempts by outcome.
	BrokerForwards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areanode_broker_forwards_total",
			Help: "Total broker forward attempts by result",
		},
		[]string{"result"},
	)
)
