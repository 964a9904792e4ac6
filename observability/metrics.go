package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// dispatcherMetrics tracks the engine's action handlers (create_smart_wallet,
// execute_transaction, invoke_policy, update_policy, commit_cpi/execute_committed).
type dispatcherMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	dispatcherMetricsOnce sync.Once
	dispatcherRegistry    *dispatcherMetrics

	policyMetricsOnce sync.Once
	policyRegistry    *policyMetrics
)

// Dispatcher returns the lazily-initialised metrics registry for engine
// action handlers.
func Dispatcher() *dispatcherMetrics {
	dispatcherMetricsOnce.Do(func() {
		dispatcherRegistry = &dispatcherMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lazorkit",
				Subsystem: "dispatcher",
				Name:      "actions_total",
				Help:      "Total engine actions segmented by action and outcome.",
			}, []string{"action", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lazorkit",
				Subsystem: "dispatcher",
				Name:      "errors_total",
				Help:      "Total engine action failures segmented by action and reason.",
			}, []string{"action", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lazorkit",
				Subsystem: "dispatcher",
				Name:      "action_duration_seconds",
				Help:      "Latency distribution for engine action handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
		}
		prometheus.MustRegister(
			dispatcherRegistry.requests,
			dispatcherRegistry.errors,
			dispatcherRegistry.latency,
		)
	})
	return dispatcherRegistry
}

// Observe records the outcome of dispatching action.
func (m *dispatcherMetrics) Observe(action string, err error, d time.Duration) {
	if m == nil {
		return
	}
	action = normalizeLabel(action)
	outcome := "success"
	if err != nil {
		outcome = "error"
		reason := normalizeLabel(err.Error())
		m.errors.WithLabelValues(action, reason).Inc()
	}
	m.requests.WithLabelValues(action, outcome).Inc()
	m.latency.WithLabelValues(action).Observe(d.Seconds())
}

// policyMetrics tracks CPI invocations into policy programs (check_policy,
// init_policy, destroy, add_device).
type policyMetrics struct {
	invocations *prometheus.CounterVec
	reentrancy  prometheus.Counter
}

// Policy returns the lazily-initialised metrics registry for policy-program
// CPI activity.
func Policy() *policyMetrics {
	policyMetricsOnce.Do(func() {
		policyRegistry = &policyMetrics{
			invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lazorkit",
				Subsystem: "policy",
				Name:      "cpi_invocations_total",
				Help:      "Count of CPI calls into policy programs segmented by program and outcome.",
			}, []string{"program", "outcome"}),
			reentrancy: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lazorkit",
				Subsystem: "policy",
				Name:      "reentrancy_rejections_total",
				Help:      "Count of CPI calls rejected because the target equalled the invoking program.",
			}),
		}
		prometheus.MustRegister(policyRegistry.invocations, policyRegistry.reentrancy)
	})
	return policyRegistry
}

// RecordInvocation records a CPI call into a policy program keyed by its
// bech32 address.
func (m *policyMetrics) RecordInvocation(program string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.invocations.WithLabelValues(normalizeLabel(program), outcome).Inc()
}

// RecordReentrancyRejection increments the reentrancy-guard counter.
func (m *policyMetrics) RecordReentrancyRejection() {
	if m == nil {
		return
	}
	m.reentrancy.Inc()
}

func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
