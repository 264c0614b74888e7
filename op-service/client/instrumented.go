package client

import (
	"context"

	"github.com/mantlenetworkio/gasless/op-service/metrics"
)

// InstrumentedRPC reports every call of the wrapped RPC to the metrics.
type InstrumentedRPC struct {
	inner    RPC
	endpoint string
	m        metrics.RPCClientMetricer
}

var _ RPC = (*InstrumentedRPC)(nil)

func NewInstrumentedRPC(inner RPC, endpoint string, m metrics.RPCClientMetricer) *InstrumentedRPC {
	return &InstrumentedRPC{inner: inner, endpoint: endpoint, m: m}
}

func (ic *InstrumentedRPC) Close() {
	ic.inner.Close()
}

func (ic *InstrumentedRPC) CallContext(ctx context.Context, result any, method string, args ...any) error {
	done := ic.m.RecordRPCClientRequest(ic.endpoint, method)
	err := ic.inner.CallContext(ctx, result, method, args...)
	done(err)
	return err
}
