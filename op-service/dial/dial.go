package dial

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/gasless/op-service/client"
	"github.com/mantlenetworkio/gasless/op-service/sources"
)

// DefaultDialTimeout is a default timeout for dialing a client.
const DefaultDialTimeout = 30 * time.Second
const defaultRetryCount = 10
const defaultRetryTime = 3 * time.Second
const defaultConnectTimeout = 10 * time.Second

// dialClientWithTimeout dials an RPC client, retrying until the timeout expires or the attempts run out.
func dialClientWithTimeout(ctx context.Context, timeout time.Duration, log log.Logger, url string, callerOpts ...client.RPCOption) (client.RPC, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := []client.RPCOption{
		client.WithFixedDialBackoff(defaultRetryTime),
		client.WithDialAttempts(defaultRetryCount),
		client.WithConnectTimeout(defaultConnectTimeout),
	}
	opts = append(opts, callerOpts...)

	return client.NewRPC(ctx, log, url, opts...)
}

// DialEthClientWithTimeout attempts to dial the chain provider using the provided
// URL. If the dial doesn't complete within timeout, this method will return an error.
func DialEthClientWithTimeout(ctx context.Context, timeout time.Duration, log log.Logger, url string, callerOpts ...client.RPCOption) (*sources.EthClient, error) {
	rpcCl, err := dialClientWithTimeout(ctx, timeout, log, url, callerOpts...)
	if err != nil {
		return nil, err
	}
	return sources.NewEthClient(rpcCl, log), nil
}

// DialRelayClientWithTimeout prepares a client for the gas relayer, submitting on method.
// The relayer is dialed lazily: an unreachable relayer is reported when the request is submitted.
func DialRelayClientWithTimeout(ctx context.Context, timeout time.Duration, log log.Logger, url string, method string, callerOpts ...client.RPCOption) (*sources.RelayClient, error) {
	opts := append([]client.RPCOption{client.WithLazyDial()}, callerOpts...)
	rpcCl, err := dialClientWithTimeout(ctx, timeout, log, url, opts...)
	if err != nil {
		return nil, err
	}
	return sources.NewRelayClient(rpcCl, method), nil
}
