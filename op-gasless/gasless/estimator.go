package gasless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/gasless/op-gasless/metrics"
	"github.com/mantlenetworkio/gasless/op-service/clock"
	"github.com/mantlenetworkio/gasless/op-service/safemath"
	"github.com/mantlenetworkio/gasless/op-service/signer"
)

const (
	DefaultEstimationMaxDuration   = 30 * time.Second
	DefaultEstimationRetryInterval = 100 * time.Millisecond
	DefaultGasStep                 = 10_000
	DefaultGasCeiling              = 8_000_000
)

// EstimationState is the state of a gas estimation run.
type EstimationState uint8

const (
	Estimating EstimationState = iota
	Succeeded
	TimedOut
)

func (s EstimationState) String() string {
	switch s {
	case Estimating:
		return "estimating"
	case Succeeded:
		return "succeeded"
	case TimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

type EstimationConfig struct {
	// MaxDuration bounds the wall-clock time spent estimating, attempts are not counted.
	MaxDuration time.Duration
	// RetryInterval is the wait after a failed attempt.
	RetryInterval time.Duration
	// GasStep is added to a successful estimate.
	GasStep uint64
	// GasCeiling caps the gas placed in the signed request.
	GasCeiling uint64
}

func DefaultEstimationConfig() EstimationConfig {
	return EstimationConfig{
		MaxDuration:   DefaultEstimationMaxDuration,
		RetryInterval: DefaultEstimationRetryInterval,
		GasStep:       DefaultGasStep,
		GasCeiling:    DefaultGasCeiling,
	}
}

func (c EstimationConfig) Check() error {
	if c.MaxDuration <= 0 {
		return errors.New("estimation max duration must be positive")
	}
	if c.RetryInterval <= 0 {
		return errors.New("estimation retry interval must be positive")
	}
	if c.GasCeiling == 0 {
		return errors.New("gas ceiling must not be zero")
	}
	return nil
}

// Next is the transition rule, evaluated after every attempt.
// elapsed is the time since the first attempt started and attemptErr the outcome of the latest attempt.
// A failed attempt is only retried if the following one can still start before MaxDuration.
func (c EstimationConfig) Next(elapsed time.Duration, attemptErr error) EstimationState {
	if attemptErr == nil {
		return Succeeded
	}
	if elapsed+c.RetryInterval >= c.MaxDuration {
		return TimedOut
	}
	return Estimating
}

// finalGas is the gas signed into the request after a successful estimate.
// Only the step is clamped to the ceiling, never the estimate itself.
func (c EstimationConfig) finalGas(estimate uint64) (uint64, error) {
	if estimate > c.GasCeiling {
		return 0, fmt.Errorf("%w: chain estimated %d, ceiling is %d", ErrGasAboveCeiling, estimate, c.GasCeiling)
	}
	return min(safemath.SaturatingAdd(estimate, c.GasStep), c.GasCeiling), nil
}

type GasEstimator interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// GasEstimatingSigner signs forward requests with a gas value the chain accepts.
type GasEstimatingSigner struct {
	log    log.Logger
	metr   metrics.Metricer
	signer signer.TypedDataSigner
	chain  GasEstimator
	cfg    EstimationConfig
	clock  clock.Clock
}

func NewGasEstimatingSigner(log log.Logger, m metrics.Metricer, s signer.TypedDataSigner, chain GasEstimator, cfg EstimationConfig, clk clock.Clock) *GasEstimatingSigner {
	return &GasEstimatingSigner{log: log, metr: m, signer: s, chain: chain, cfg: cfg, clock: clk}
}

func (s *GasEstimatingSigner) sign(ctx context.Context, req ForwardRequest) ([]byte, error) {
	if req.from != s.signer.Address() {
		return nil, fmt.Errorf("%w: request is from %s but the key belongs to %s", ErrSigning, req.from, s.signer.Address())
	}
	sig, err := s.signer.SignTypedData(ctx, req.TypedData())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return sig, nil
}

// SignWithEstimatedGas signs req, estimates the gas of executing it through the forwarder and
// returns the request re-signed with the estimate plus the configured step.
// Estimation failures are retried until the configured duration is used up.
func (s *GasEstimatingSigner) SignWithEstimatedGas(ctx context.Context, req ForwardRequest) (*SignedRelayRequest, error) {
	forwarder := req.domain.VerifyingContract
	start := s.clock.Now()
	for attempt := 1; ; attempt++ {
		sig, err := s.sign(ctx, req)
		if err != nil {
			return nil, err
		}
		calldata, err := PackExecute(req, sig)
		if err != nil {
			return nil, err
		}
		estimate, attemptErr := s.chain.EstimateGas(ctx, ethereum.CallMsg{
			From: req.from,
			To:   &forwarder,
			Data: calldata,
		})
		elapsed := s.clock.Now().Sub(start)
		s.metr.RecordEstimationAttempt(attemptErr)
		state := s.cfg.Next(elapsed, attemptErr)
		switch state {
		case Succeeded:
			gas, err := s.cfg.finalGas(estimate)
			if err != nil {
				s.metr.RecordEstimation("above-ceiling", elapsed)
				return nil, err
			}
			s.metr.RecordEstimation(state.String(), elapsed)
			s.log.Info("Estimated gas", "attempt", attempt, "estimate", estimate, "gas", gas, "elapsed", elapsed)
			final := req.WithGas(gas)
			sig, err := s.sign(ctx, final)
			if err != nil {
				return nil, err
			}
			return &SignedRelayRequest{
				ForwardRequest: final.TypedData(),
				Metadata:       RelayRequestMetadata{Signature: hexutil.Bytes(sig)},
				EstimatedGas:   estimate,
				request:        final,
			}, nil
		case TimedOut:
			s.metr.RecordEstimation(state.String(), elapsed)
			return nil, fmt.Errorf("%w: no estimate after %d attempts in %s: %w", ErrEstimationTimeout, attempt, elapsed, attemptErr)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrChainQuery, ctx.Err())
		}
		s.log.Warn("Gas estimation failed, retrying", "attempt", attempt, "elapsed", elapsed, "retry_in", s.cfg.RetryInterval, "err", attemptErr)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrChainQuery, ctx.Err())
		case <-s.clock.After(s.cfg.RetryInterval):
		}
	}
}
