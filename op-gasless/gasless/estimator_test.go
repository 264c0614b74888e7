package gasless

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/gasless/op-gasless/metrics"
	"github.com/mantlenetworkio/gasless/op-service/clock"
	"github.com/mantlenetworkio/gasless/op-service/testlog"
)

func TestEstimationTransitions(t *testing.T) {
	cfg := EstimationConfig{MaxDuration: time.Second, RetryInterval: 100 * time.Millisecond}
	failure := errors.New("execution reverted")
	tests := []struct {
		elapsed time.Duration
		err     error
		exp     EstimationState
	}{
		{elapsed: 0, err: nil, exp: Succeeded},
		{elapsed: 5 * time.Second, err: nil, exp: Succeeded},
		{elapsed: 0, err: failure, exp: Estimating},
		{elapsed: 899 * time.Millisecond, err: failure, exp: Estimating},
		{elapsed: 900 * time.Millisecond, err: failure, exp: TimedOut},
		{elapsed: 2 * time.Second, err: failure, exp: TimedOut},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s-%v", tt.elapsed, tt.err), func(t *testing.T) {
			require.Equal(t, tt.exp, cfg.Next(tt.elapsed, tt.err))
		})
	}
	require.Equal(t, "timed-out", TimedOut.String())
}

func TestFinalGas(t *testing.T) {
	cfg := DefaultEstimationConfig()
	gas, err := cfg.finalGas(45_000)
	require.NoError(t, err)
	require.Equal(t, uint64(55_000), gas)

	gas, err = cfg.finalGas(7_995_000)
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultGasCeiling), gas, "the step is clamped")

	gas, err = cfg.finalGas(DefaultGasCeiling)
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultGasCeiling), gas)

	cfg.GasStep = ^uint64(0)
	gas, err = cfg.finalGas(45_000)
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultGasCeiling), gas)

	_, err = cfg.finalGas(DefaultGasCeiling + 1)
	require.ErrorIs(t, err, ErrGasAboveCeiling)
}

func TestEstimateAboveCeiling(t *testing.T) {
	cfg := DefaultEstimationConfig()
	cfg.GasCeiling = 40_000
	signed, chain, err := runEstimation(t, 0, cfg)
	require.ErrorIs(t, err, ErrGasAboveCeiling)
	require.ErrorContains(t, err, "chain estimated 45000, ceiling is 40000")
	require.Nil(t, signed)
	require.Len(t, chain.calls, 1, "an estimate above the ceiling is not retried")
}

func TestEstimationConfigCheck(t *testing.T) {
	require.NoError(t, DefaultEstimationConfig().Check())
	require.Error(t, EstimationConfig{RetryInterval: time.Second, GasCeiling: 1}.Check())
	require.Error(t, EstimationConfig{MaxDuration: time.Second, GasCeiling: 1}.Check())
	require.Error(t, EstimationConfig{MaxDuration: time.Second, RetryInterval: time.Second}.Check())
}

func runEstimation(t *testing.T, failures int, cfg EstimationConfig) (*SignedRelayRequest, *flakyEstimator, error) {
	s := testSigner(t)
	chain := &flakyEstimator{failures: failures, gas: 45_000}
	clk := clock.NewDeterministicClock(time.Unix(1_700_000_000, 0))
	est := NewGasEstimatingSigner(testlog.Logger(t, log.LevelDebug), metrics.NoopMetrics{}, s, chain, cfg, clk)
	signed, err := est.SignWithEstimatedGas(context.Background(), testRequest(t, s.Address()))
	return signed, chain, err
}

// N failures followed by a success succeed exactly when N*interval < max duration.
func TestEstimationRetryBoundary(t *testing.T) {
	cfg := EstimationConfig{
		MaxDuration:   time.Second,
		RetryInterval: 100 * time.Millisecond,
		GasStep:       DefaultGasStep,
		GasCeiling:    DefaultGasCeiling,
	}

	t.Run("below", func(t *testing.T) {
		signed, chain, err := runEstimation(t, 9, cfg)
		require.NoError(t, err)
		require.Len(t, chain.calls, 10)
		require.Equal(t, uint64(45_000), signed.EstimatedGas)
		require.Equal(t, uint64(55_000), signed.Request().Gas())
	})

	t.Run("at", func(t *testing.T) {
		_, chain, err := runEstimation(t, 10, cfg)
		require.ErrorIs(t, err, ErrEstimationTimeout)
		require.ErrorContains(t, err, "execution reverted")
		require.Len(t, chain.calls, 10)
	})

	t.Run("above", func(t *testing.T) {
		_, chain, err := runEstimation(t, 50, cfg)
		require.ErrorIs(t, err, ErrEstimationTimeout)
		require.Len(t, chain.calls, 10)
	})
}

func TestEstimationSignsFinalGas(t *testing.T) {
	signed, chain, err := runEstimation(t, 0, DefaultEstimationConfig())
	require.NoError(t, err)
	require.Len(t, chain.calls, 1)

	msg := chain.calls[0]
	require.Equal(t, testForwarder, *msg.To)
	require.Equal(t, testSigner(t).Address(), msg.From)

	tuple, domainSeparator, typeHash, suffix, sig := unpackExecute(t, msg.Data)
	require.Zero(t, big.NewInt(DefaultGasHint).Cmp(tuple.Gas), "estimation runs with the gas hint")
	require.Zero(t, big.NewInt(7).Cmp(tuple.Nonce))
	require.Zero(t, tuple.Value.Sign())
	require.Equal(t, testRecipient, tuple.To)
	require.Equal(t, []byte{0xd0, 0x9d, 0xe0, 0x8a}, tuple.Data)
	require.Len(t, sig, 65)

	hashes, err := signed.Request().Hashes()
	require.NoError(t, err)
	require.Equal(t, hashes.DomainSeparator, common.Hash(domainSeparator))
	require.Equal(t, hashes.RequestTypeHash, common.Hash(typeHash))
	require.Equal(t, hashes.SuffixData, suffix)

	require.Equal(t, "55000", signed.ForwardRequest.Message["gas"])
	addr, err := signed.RecoverSigner()
	require.NoError(t, err)
	require.Equal(t, testSigner(t).Address(), addr)
}

func TestEstimationRejectsForeignRequest(t *testing.T) {
	s := testSigner(t)
	chain := &flakyEstimator{gas: 45_000}
	est := NewGasEstimatingSigner(testlog.Logger(t, log.LevelDebug), metrics.NoopMetrics{}, s, chain, DefaultEstimationConfig(), clock.NewDeterministicClock(time.Unix(0, 0)))
	_, err := est.SignWithEstimatedGas(context.Background(), testRequest(t, common.Address{0x01}))
	require.ErrorIs(t, err, ErrSigning)
	require.Empty(t, chain.calls)
}

func TestEstimationStopsOnCancel(t *testing.T) {
	s := testSigner(t)
	chain := &flakyEstimator{failures: 1000, gas: 45_000}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	est := NewGasEstimatingSigner(testlog.Logger(t, log.LevelDebug), metrics.NoopMetrics{}, s, chain, DefaultEstimationConfig(), clock.NewDeterministicClock(time.Unix(0, 0)))
	_, err := est.SignWithEstimatedGas(ctx, testRequest(t, s.Address()))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, chain.calls, 1)
}
