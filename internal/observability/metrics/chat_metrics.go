package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for conversation turns and
// notification sends.
type ChatMetrics struct {
	turnsTotal         *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	turnLatency        *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbot",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total conversation turns by matched dispatch rule",
		}, []string{"rule"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbot",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total notification send attempts",
		}, []string{"kind", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medbot",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Latency of conversation turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"rule"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.notificationsTotal, m.turnLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(rule string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(rule).Inc()
	m.turnLatency.WithLabelValues(rule).Observe(seconds)
}

func (m *ChatMetrics) ObserveNotification(kind string, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.notificationsTotal.WithLabelValues(kind, outcome).Inc()
}
