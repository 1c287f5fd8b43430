package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

var (
	// requestsTotal counts HTTP requests.
	// Labels: method, route, status
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	// analysesTotal counts /analyze outcomes.
	// Labels: outcome (ok, rejected, failed)
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "analysis",
		Name:      "total",
		Help:      "Total analyses by outcome",
	}, []string{"outcome"})

	// analysisDuration measures successful analyses end to end, upload
	// included.
	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "insight",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Analysis latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)
