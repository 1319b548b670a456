package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager before its collectors are registered.
type Option func(*Manager)

// WithNamespace replaces the "vibrapulse" namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem replaces the "dashboard" subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the buckets of the latency histograms
// (inference, analysis, HTTP, delivery). Max-risk keeps its percent buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithMetricsEnabled false keeps every collector usable but unregistered.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithRefreshInterval sets how often sampled gauges are polled. See
// Manager.RefreshInterval.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithCustomLabels attaches constant labels, e.g. site or pump fleet, to
// every series.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if labels != nil {
			m.customLabels = labels
		}
	}
}

// WithMetricPrefix prepends prefix_ to every metric name.
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.metricPrefix = prefix
		}
	}
}

// WithPrometheusRegistry registers collectors on registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
