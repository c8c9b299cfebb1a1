package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type runtimeMetrics struct {
	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolErrorsTotal       *prometheus.CounterVec

	namespaceRebuildTotal    *prometheus.CounterVec
	namespaceRebuildDuration prometheus.Histogram
	namespaceTools           prometheus.Gauge

	proposalsPending  prometheus.Gauge
	proposalsDecided  *prometheus.CounterVec
	peerMessagesTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *runtimeMetrics
)

func getMetrics() *runtimeMetrics {
	metricsOnce.Do(func() {
		m := &runtimeMetrics{
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_errors_total",
					Help: "Total tool execution errors by tool.",
				},
				[]string{"tool"},
			),
			namespaceRebuildTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "namespace_rebuild_total",
					Help: "Total namespace rebuilds by status.",
				},
				[]string{"status"},
			),
			namespaceRebuildDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "namespace_rebuild_duration_seconds",
					Help:    "Namespace rebuild duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			namespaceTools: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "namespace_tools",
					Help: "Tool count in the currently published namespace.",
				},
			),
			proposalsPending: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "proposals_pending",
					Help: "Current pending proposal count in the approval queue.",
				},
			),
			proposalsDecided: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "proposals_decided_total",
					Help: "Total proposal decisions by outcome.",
				},
				[]string{"outcome"},
			),
			peerMessagesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "peer_messages_total",
					Help: "Total inbound peer messages by kind.",
				},
				[]string{"kind"},
			),
		}

		prometheus.MustRegister(
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolErrorsTotal,
			m.namespaceRebuildTotal,
			m.namespaceRebuildDuration,
			m.namespaceTools,
			m.proposalsPending,
			m.proposalsDecided,
			m.peerMessagesTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if !success {
		m.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
}

func RecordNamespaceRebuild(duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.namespaceRebuildTotal.WithLabelValues(status).Inc()
	m.namespaceRebuildDuration.Observe(duration.Seconds())
}

func SetNamespaceTools(count int) {
	getMetrics().namespaceTools.Set(float64(count))
}

func SetProposalsPending(count int) {
	getMetrics().proposalsPending.Set(float64(count))
}

func RecordProposalDecision(outcome string) {
	getMetrics().proposalsDecided.WithLabelValues(outcome).Inc()
}

func RecordPeerMessage(kind string) {
	getMetrics().peerMessagesTotal.WithLabelValues(kind).Inc()
}
