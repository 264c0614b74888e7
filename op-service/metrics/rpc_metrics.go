package metrics

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

const RPCClientSubsystem = "rpc_client"

type RPCClientMetricer interface {
	// RecordRPCClientRequest starts timing a request and returns the callback to report its outcome with.
	RecordRPCClientRequest(endpoint string, method string) func(err error)
}

// RPCClientMetrics tracks requests made by RPC clients, per endpoint and method.
// It is meant to be embedded into the metrics of a service.
type RPCClientMetrics struct {
	requestsTotal          *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
	responsesTotal         *prometheus.CounterVec
}

var _ RPCClientMetricer = (*RPCClientMetrics)(nil)

func MakeRPCClientMetrics(ns string, factory Factory) RPCClientMetrics {
	return RPCClientMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: RPCClientSubsystem,
			Name:      "requests_total",
			Help:      "Total RPC requests initiated",
		}, []string{
			"endpoint",
			"method",
		}),
		requestDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: RPCClientSubsystem,
			Name:      "request_duration_seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			Help:      "Histogram of RPC client request durations",
		}, []string{
			"endpoint",
			"method",
		}),
		responsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: RPCClientSubsystem,
			Name:      "responses_total",
			Help:      "Total RPC request responses received",
		}, []string{
			"endpoint",
			"method",
			"error",
		}),
	}
}

func (m *RPCClientMetrics) RecordRPCClientRequest(endpoint string, method string) func(err error) {
	m.requestsTotal.WithLabelValues(endpoint, method).Inc()
	timer := prometheus.NewTimer(m.requestDurationSeconds.WithLabelValues(endpoint, method))
	return func(err error) {
		timer.ObserveDuration()
		m.responsesTotal.WithLabelValues(endpoint, method, errorLabel(err)).Inc()
	}
}

// errorLabel is "<nil>" on success, "rpc_<code>" for server errors and "local" otherwise.
func errorLabel(err error) string {
	if err == nil {
		return "<nil>"
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return fmt.Sprintf("rpc_%d", rpcErr.ErrorCode())
	}
	return "local"
}

type NoopRPCClientMetrics struct{}

func (NoopRPCClientMetrics) RecordRPCClientRequest(endpoint string, method string) func(err error) {
	return func(err error) {}
}

var _ RPCClientMetricer = NoopRPCClientMetrics{}
