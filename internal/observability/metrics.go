package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	roadmapRequestsTotal  *prometheus.CounterVec
	roadmapLatencySeconds *prometheus.HistogramVec
	milestoneTransitions  *prometheus.CounterVec
	navigationSessions    *prometheus.CounterVec
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the roadmap core.
func RegisterMetrics() {
	registerOnce.Do(func() {
		roadmapRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadmap_requests_total",
			Help: "Total number of roadmap service operations by outcome.",
		}, []string{"operation", "outcome"})

		roadmapLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roadmap_latency_seconds",
			Help:    "Latency distribution for roadmap service operations.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"operation"})

		milestoneTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "milestone_transitions_total",
			Help: "Milestone state machine transitions applied.",
		}, []string{"from", "to"})

		navigationSessions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navigation_sessions_total",
			Help: "Chat sessions resolved by start-learning, split by reuse.",
		}, []string{"mode"})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(roadmapRequestsTotal, roadmapLatencySeconds, milestoneTransitions, navigationSessions, httpRequestsTotal, httpLatencySeconds)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// RoadmapRequests exposes the operation counter.
func RoadmapRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return roadmapRequestsTotal
}

// RoadmapLatency exposes the operation latency histogram.
func RoadmapLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return roadmapLatencySeconds
}

// MilestoneTransitions exposes the transition counter.
func MilestoneTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return milestoneTransitions
}

// NavigationSessions exposes the session reuse counter.
func NavigationSessions() *prometheus.CounterVec {
	RegisterMetrics()
	return navigationSessions
}
