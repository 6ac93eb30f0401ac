package observability

import "github.com/prometheus/client_golang/prometheus"

// promMetrics bundles every Prometheus collector Sink updates. Kept
// unexported and constructed only via NewPromMetrics so a Sink always
// registers a complete, consistent set rather than a partially-wired one.
type promMetrics struct {
	requestsTotal       prometheus.Counter
	successTotal        prometheus.Counter
	failuresTotal       *prometheus.CounterVec
	reroutesTotal       prometheus.Counter
	securityBlocksTotal prometheus.Counter
	hopsTotal           *prometheus.CounterVec
	hopsPerRoute        prometheus.Histogram
}

// NewPromMetrics constructs and registers the routing engine's Prometheus
// collectors on reg. Call once per process; pass the result to NewSink.
func NewPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "avrs", Subsystem: "routing", Name: "requests_total",
			Help: "Total routing requests completed, successful or not.",
		}),
		successTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "avrs", Subsystem: "routing", Name: "success_total",
			Help: "Total routing requests that reached their target.",
		}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avrs", Subsystem: "routing", Name: "failures_total",
			Help: "Total routing requests that did not reach their target, by failure code.",
		}, []string{"code"}),
		reroutesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "avrs", Subsystem: "routing", Name: "reroutes_total",
			Help: "Total reroutes taken across all requests (face routing or self-heal).",
		}),
		securityBlocksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "avrs", Subsystem: "routing", Name: "security_blocks_total",
			Help: "Total requests rejected before routing began.",
		}),
		hopsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avrs", Subsystem: "routing", Name: "hops_total",
			Help: "Total hops taken, by hop kind.",
		}, []string{"kind"}),
		hopsPerRoute: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "avrs", Subsystem: "routing", Name: "hops_per_route",
			Help:    "Distribution of total hops per completed route.",
			Buckets: prometheus.LinearBuckets(1, 2, 25),
		}),
	}

	reg.MustRegister(
		m.requestsTotal,
		m.successTotal,
		m.failuresTotal,
		m.reroutesTotal,
		m.securityBlocksTotal,
		m.hopsTotal,
		m.hopsPerRoute,
	)
	return m
}
