package obs

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	ClaimsTotal   *prometheus.CounterVec // result=success|denied_offline|denied_quota|rejected|unreachable|invalid|cooldown|error
	AdminOpsTotal *prometheus.CounterVec // op=login|state|history|toggle|limit|reset|send, result=ok|forbidden|error

	ProviderLatencyMS *prometheus.HistogramVec // outcome=succeeded|rejected|unreachable|setup_failed
}

func NewMetrics() *Metrics {
	m := &Metrics{
		ClaimsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airtime_claims_total",
				Help: "Total claim attempts by result",
			},
			[]string{"result"},
		),
		AdminOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airtime_admin_ops_total",
				Help: "Total admin operations by op and result",
			},
			[]string{"op", "result"},
		),
		ProviderLatencyMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airtime_provider_latency_ms",
				Help:    "Latency of upstream provider calls (ms)",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1ms .. ~8s
			},
			[]string{"outcome"},
		),
	}

	prometheus.MustRegister(
		m.ClaimsTotal,
		m.AdminOpsTotal,
		m.ProviderLatencyMS,
	)

	return m
}
