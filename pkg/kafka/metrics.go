package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	outcomePublished   = "published"
	outcomeFailed      = "failed"
	outcomeProcessed   = "processed"
	outcomeUndecodable = "undecodable"
)

var (
	producerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_events_published_total",
			Help: "Activity events handed to Kafka, by outcome",
		},
		[]string{"topic", "outcome"},
	)

	producerPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_events_publish_duration_seconds",
			Help:    "Time spent writing one activity event to Kafka",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"topic"},
	)

	consumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_events_consumed_total",
			Help: "Activity events read from Kafka, by outcome",
		},
		[]string{"topic", "consumer_group", "outcome"},
	)
)
