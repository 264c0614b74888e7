package metrics

import (
	"time"

	opmetrics "github.com/mantlenetworkio/gasless/op-service/metrics"
)

type Metricer interface {
	RecordInfo(version string)

	// RecordEstimationAttempt counts a single eth_estimateGas call.
	RecordEstimationAttempt(err error)
	// RecordEstimation records how an estimation loop ended.
	RecordEstimation(outcome string, elapsed time.Duration)

	RecordRelay(flow string) (onDone func(err error))

	opmetrics.RPCClientMetricer
}
