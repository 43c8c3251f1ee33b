package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cart event publishing metrics, labelled by topic.
var (
	ProducerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partsquote",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Cart events accepted by the broker.",
		},
		[]string{"topic"},
	)

	ProducerPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partsquote",
			Subsystem: "events",
			Name:      "publish_errors_total",
			Help:      "Cart events the broker did not accept.",
		},
		[]string{"topic"},
	)

	ProducerPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "partsquote",
			Subsystem: "events",
			Name:      "publish_duration_seconds",
			Help:      "Time to publish one cart event, including retries.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"topic"},
	)
)
