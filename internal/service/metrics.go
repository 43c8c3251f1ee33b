package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discountTierChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_discount_tier_changes_total",
			Help: "Number of cart mutations that moved the cart-wide discount tier",
		},
		[]string{"direction"},
	)

	quoteSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_submissions_total",
			Help: "Number of quote submissions by outcome",
		},
		[]string{"outcome"},
	)
)
