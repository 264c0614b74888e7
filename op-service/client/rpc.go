package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mantlenetworkio/gasless/op-service/metrics"
)

// RPC is the minimal JSON-RPC surface the service clients depend on.
type RPC interface {
	Close()
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

type rpcConfig struct {
	dialAttempts   int
	dialBackoff    time.Duration
	connectTimeout time.Duration
	callTimeout    time.Duration
	callRetries    int
	callBackoff    time.Duration
	lazy           bool
	gethRPCOptions []rpc.ClientOption
	endpoint       string
	metrics        metrics.RPCClientMetricer
}

type RPCOption func(cfg *rpcConfig)

// WithDialAttempts configures the number of attempts for the initial dial to the RPC,
// attempts are executed with the dial backoff in between.
func WithDialAttempts(attempts int) RPCOption {
	return func(cfg *rpcConfig) {
		cfg.dialAttempts = attempts
	}
}

// WithFixedDialBackoff makes the RPC client use a fixed delay between dial attempts.
func WithFixedDialBackoff(d time.Duration) RPCOption {
	return func(cfg *rpcConfig) {
		cfg.dialBackoff = d
	}
}

// WithConnectTimeout bounds the availability probe that precedes each dial attempt.
func WithConnectTimeout(d time.Duration) RPCOption {
	return func(cfg *rpcConfig) {
		cfg.connectTimeout = d
	}
}

// WithCallTimeout bounds every individual call made through the client.
func WithCallTimeout(d time.Duration) RPCOption {
	return func(cfg *rpcConfig) {
		cfg.callTimeout = d
	}
}

// WithCallRetries retries calls that failed at the transport level.
// Errors returned by the remote JSON-RPC server are never retried.
func WithCallRetries(retries int, d time.Duration) RPCOption {
	return func(cfg *rpcConfig) {
		cfg.callRetries = retries
		cfg.callBackoff = d
	}
}

// WithLazyDial skips the availability probe, the connection is then only made on first use.
func WithLazyDial() RPCOption {
	return func(cfg *rpcConfig) {
		cfg.lazy = true
	}
}

// WithGethRPCOptions passes the options through to the underlying geth client.
func WithGethRPCOptions(opts ...rpc.ClientOption) RPCOption {
	return func(cfg *rpcConfig) {
		cfg.gethRPCOptions = append(cfg.gethRPCOptions, opts...)
	}
}

// WithRPCMetrics records every request attempt under the given endpoint label.
func WithRPCMetrics(endpoint string, m metrics.RPCClientMetricer) RPCOption {
	return func(cfg *rpcConfig) {
		cfg.endpoint = endpoint
		cfg.metrics = m
	}
}

// NewRPC returns the correct client.RPC instance for a given RPC url.
func NewRPC(ctx context.Context, lgr log.Logger, addr string, opts ...RPCOption) (RPC, error) {
	var cfg rpcConfig
	for i, opt := range opts {
		if opt == nil {
			return nil, fmt.Errorf("rpc option %d is nil", i)
		}
		opt(&cfg)
	}
	if cfg.dialAttempts <= 0 {
		cfg.dialAttempts = 1
	}
	if cfg.connectTimeout == 0 {
		cfg.connectTimeout = 10 * time.Second
	}

	underlying, err := dialRPCClientWithBackoff(ctx, lgr, addr, &cfg)
	if err != nil {
		return nil, err
	}

	var wrapped RPC = &BaseRPCClient{c: underlying, callTimeout: cfg.callTimeout}
	if cfg.metrics != nil {
		wrapped = NewInstrumentedRPC(wrapped, cfg.endpoint, cfg.metrics)
	}
	if cfg.callRetries > 0 {
		wrapped = &retryingRPC{inner: wrapped, log: lgr, retries: cfg.callRetries, backoff: cfg.callBackoff}
	}
	return wrapped, nil
}

// Dials a JSON-RPC endpoint repeatedly, with a backoff, until a client connection is established.
func dialRPCClientWithBackoff(ctx context.Context, lgr log.Logger, addr string, cfg *rpcConfig) (*rpc.Client, error) {
	var bOff backoff.BackOff = backoff.NewConstantBackOff(cfg.dialBackoff)
	bOff = backoff.WithContext(backoff.WithMaxRetries(bOff, uint64(cfg.dialAttempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotifyWithData(func() (*rpc.Client, error) {
		attempt++
		if !cfg.lazy {
			return CheckAndDial(ctx, lgr, addr, cfg.connectTimeout, cfg.gethRPCOptions...)
		}
		return rpc.DialOptions(ctx, addr, cfg.gethRPCOptions...)
	}, bOff, func(err error, next time.Duration) {
		lgr.Warn("Failed to dial RPC endpoint", "addr", addr, "attempt", attempt, "retry_in", next, "err", err)
	})
}

// CheckAndDial probes the address before dialing it, so that an unreachable
// endpoint is reported at startup instead of on the first call.
func CheckAndDial(ctx context.Context, lgr log.Logger, addr string, connectTimeout time.Duration, opts ...rpc.ClientOption) (*rpc.Client, error) {
	if !IsURLAvailable(ctx, addr, connectTimeout) {
		return nil, fmt.Errorf("address unavailable (%s)", addr)
	}
	client, err := rpc.DialOptions(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial address (%s): %w", addr, err)
	}
	lgr.Debug("Dialed RPC endpoint", "addr", addr)
	return client, nil
}

// IsURLAvailable reports whether a TCP connection can be opened to the host of the address.
// Unknown schemes fail open.
func IsURLAvailable(ctx context.Context, address string, timeout time.Duration) bool {
	u, err := url.Parse(address)
	if err != nil {
		return false
	}
	addr := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "http", "ws":
			addr += ":80"
		case "https", "wss":
			addr += ":443"
		default:
			// Fail open if we can't figure out what the port should be
			return true
		}
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// BaseRPCClient is a wrapper around a concrete *rpc.Client instance to make it compliant
// with the client.RPC interface.
// It sets a timeout of 10s on CallContext when the context does not have a deadline
// and no call timeout was configured.
type BaseRPCClient struct {
	c           *rpc.Client
	callTimeout time.Duration
}

func NewBaseRPCClient(c *rpc.Client) *BaseRPCClient {
	return &BaseRPCClient{c: c, callTimeout: 10 * time.Second}
}

func (b *BaseRPCClient) Close() {
	b.c.Close()
}

func (b *BaseRPCClient) CallContext(ctx context.Context, result any, method string, args ...any) error {
	timeout := b.callTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	cCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := b.c.CallContext(cCtx, result, method, args...)
	return wrapErrorData(err)
}

// wrapErrorData surfaces the data field of a JSON-RPC error, which geth otherwise drops from the message.
func wrapErrorData(err error) error {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data := dataErr.ErrorData(); data != nil {
			return fmt.Errorf("%w: %v", err, data)
		}
	}
	return err
}

// retryingRPC retries calls that did not reach the remote JSON-RPC handler.
type retryingRPC struct {
	inner   RPC
	log     log.Logger
	retries int
	backoff time.Duration
}

func (r *retryingRPC) Close() {
	r.inner.Close()
}

func (r *retryingRPC) CallContext(ctx context.Context, result any, method string, args ...any) error {
	var bOff backoff.BackOff = backoff.NewConstantBackOff(r.backoff)
	bOff = backoff.WithContext(backoff.WithMaxRetries(bOff, uint64(r.retries)), ctx)
	return backoff.RetryNotify(func() error {
		err := r.inner.CallContext(ctx, result, method, args...)
		if err != nil && !IsTransportError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bOff, func(err error, next time.Duration) {
		r.log.Debug("Retrying RPC call", "method", method, "retry_in", next, "err", err)
	})
}

// IsTransportError reports whether err was produced before the remote JSON-RPC handler answered.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rpcErr rpc.Error
	return !errors.As(err, &rpcErr)
}
