// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animeflick_upstream_requests_total",
		Help: "Total number of upstream API requests",
	}, []string{"api", "status"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "animeflick_upstream_duration_seconds",
		Help:    "Time spent waiting on upstream APIs",
		Buckets: prometheus.ExponentialBuckets(0.01, 2.0, 10), // 10ms to ~5.1s
	}, []string{"api"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animeflick_token_refreshes_total",
		Help: "Total number of access token refresh attempts",
	}, []string{"trigger", "outcome"})

	CacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animeflick_cache_ops_total",
		Help: "Catalog cache operations by result",
	}, []string{"result"})
)
