package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_api_requests_total",
			Help: "Total number of storefront API requests by outcome",
		},
		[]string{"method", "resource", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_api_request_duration_seconds",
			Help:    "Storefront API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "resource"},
	)

	apiTokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_api_token_refresh_total",
			Help: "Total number of access token refresh attempts",
		},
		[]string{"result"},
	)
)
