package metrics

import (
	"time"

	opmetrics "github.com/mantlenetworkio/gasless/op-service/metrics"
)

type NoopMetrics struct {
	opmetrics.NoopRPCClientMetrics
}

func (n NoopMetrics) RecordInfo(version string) {}

func (n NoopMetrics) RecordEstimationAttempt(err error) {}

func (n NoopMetrics) RecordEstimation(outcome string, elapsed time.Duration) {}

func (n NoopMetrics) RecordRelay(flow string) (onDone func(err error)) {
	return func(err error) {}
}

var _ Metricer = NoopMetrics{}
