package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	opmetrics "github.com/mantlenetworkio/gasless/op-service/metrics"
)

const Namespace = "op_gasless"

type Metrics struct {
	ns       string
	registry *prometheus.Registry
	factory  opmetrics.Factory

	opmetrics.RPCClientMetrics

	info prometheus.GaugeVec

	estimationAttempts *prometheus.CounterVec
	estimations        *prometheus.CounterVec
	estimationDuration prometheus.Histogram

	relayRequests *prometheus.CounterVec
	relayDuration *prometheus.HistogramVec
}

var _ Metricer = (*Metrics)(nil)

func NewMetrics(procName string) *Metrics {
	return newMetrics(procName, opmetrics.NewRegistry())
}

func newMetrics(procName string, registry *prometheus.Registry) *Metrics {
	if procName == "" {
		procName = "default"
	}
	ns := Namespace + "_" + procName

	factory := opmetrics.With(registry)
	return &Metrics{
		ns:       ns,
		registry: registry,
		factory:  factory,

		RPCClientMetrics: opmetrics.MakeRPCClientMetrics(ns, factory),

		info: *factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "info",
			Help:      "Pseudo-metric tracking version and config info",
		}, []string{
			"version",
		}),

		estimationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "estimation_attempts_total",
			Help:      "Count of gas estimation calls",
		}, []string{"err"}),
		estimations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "estimations_total",
			Help:      "Count of finished gas estimation loops, by final state",
		}, []string{"outcome"}),
		estimationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "estimation_duration_seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			Help:      "Time spent estimating gas for a request",
		}),

		relayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "relay_requests_total",
			Help:      "Count of signed requests handed to the gas relayer",
		}, []string{"flow", "err"}),
		relayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "relay_duration_seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			Help:      "Duration of a relay submission",
		}, []string{"flow"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordInfo sets a pseudo-metric that contains versioning and config info.
func (m *Metrics) RecordInfo(version string) {
	m.info.WithLabelValues(version).Set(1)
}

func (m *Metrics) RecordEstimationAttempt(err error) {
	m.estimationAttempts.WithLabelValues(boolString(err != nil)).Inc()
}

func (m *Metrics) RecordEstimation(outcome string, elapsed time.Duration) {
	m.estimations.WithLabelValues(outcome).Inc()
	m.estimationDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordRelay(flow string) (onDone func(err error)) {
	timer := prometheus.NewTimer(m.relayDuration.WithLabelValues(flow))
	return func(err error) {
		timer.ObserveDuration()
		m.relayRequests.WithLabelValues(flow, boolString(err != nil)).Inc()
	}
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
