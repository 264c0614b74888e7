package gasless

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"

	"github.com/mantlenetworkio/gasless/op-gasless/metrics"
	"github.com/mantlenetworkio/gasless/op-service/clock"
	"github.com/mantlenetworkio/gasless/op-service/signer"
)

type ChainClient interface {
	ContractCaller
	GasEstimator
	ChainID(ctx context.Context) (*big.Int, error)
}

// ChainContext is fixed for a run: the chain id and the two endpoints.
type ChainContext struct {
	chainID *big.Int
	Chain   ChainClient
	Relay   RelaySender
}

// NewChainContext queries the chain id once.
func NewChainContext(ctx context.Context, chain ChainClient, relay RelaySender) (*ChainContext, error) {
	id, err := chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChainQuery, err)
	}
	if id == nil || id.Sign() <= 0 {
		return nil, fmt.Errorf("%w: invalid chain id %v", ErrChainQuery, id)
	}
	return &ChainContext{chainID: new(big.Int).Set(id), Chain: chain, Relay: relay}, nil
}

func (c *ChainContext) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

type RelayConfig struct {
	Forwarder      common.Address
	Recipient      common.Address
	DomainName     string
	DomainVersion  string
	TypeName       string
	TypeSuffixData string
	GasHint        uint64
	Estimation     EstimationConfig
}

func (c *RelayConfig) Check() error {
	var result *multierror.Error
	if c.Forwarder == (common.Address{}) {
		result = multierror.Append(result, errors.New("trusted forwarder address is required"))
	}
	if c.Recipient == (common.Address{}) {
		result = multierror.Append(result, errors.New("recipient contract address is required"))
	}
	if c.DomainName == "" {
		result = multierror.Append(result, errors.New("domain name is required"))
	}
	if c.DomainVersion == "" {
		result = multierror.Append(result, errors.New("domain version is required"))
	}
	if c.TypeName == "" {
		result = multierror.Append(result, errors.New("type name is required"))
	}
	if c.TypeSuffixData == "" {
		result = multierror.Append(result, errors.New("type suffix data is required"))
	}
	if c.GasHint == 0 {
		result = multierror.Append(result, errors.New("gas hint must not be zero"))
	}
	if err := c.Estimation.Check(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Relayer runs the meta-transaction pipeline for one signing account.
type Relayer struct {
	log    log.Logger
	metr   metrics.Metricer
	cfg    RelayConfig
	signer signer.TypedDataSigner
	clock  clock.Clock
}

func NewRelayer(log log.Logger, m metrics.Metricer, cfg RelayConfig, s signer.TypedDataSigner, clk clock.Clock) *Relayer {
	return &Relayer{log: log, metr: m, cfg: cfg, signer: s, clock: clk}
}

// BuildRequest resolves the nonce and assembles the unsigned forward request for strategy.
func (r *Relayer) BuildRequest(ctx context.Context, chainCtx *ChainContext, strategy CalldataStrategy) (ForwardRequest, error) {
	from := r.signer.Address()
	nonce, err := ResolveNonce(ctx, chainCtx.Chain, r.cfg.Forwarder, from)
	if err != nil {
		return ForwardRequest{}, err
	}
	r.log.Info("Resolved forwarder nonce", "forwarder", r.cfg.Forwarder, "from", from, "nonce", nonce)

	data, err := strategy.Calldata(CallContext{
		ChainID:   chainCtx.ChainID(),
		From:      from,
		Recipient: r.cfg.Recipient,
		Nonce:     nonce,
	})
	if err != nil {
		return ForwardRequest{}, err
	}

	domain := Domain{
		Name:              r.cfg.DomainName,
		Version:           r.cfg.DomainVersion,
		ChainID:           chainCtx.ChainID(),
		VerifyingContract: r.cfg.Forwarder,
	}
	ext := TypeExtension{TypeName: r.cfg.TypeName, TypeSuffixData: r.cfg.TypeSuffixData}
	return NewForwardRequest(domain, from, r.cfg.Recipient, nonce, data, ext, WithGasHint(r.cfg.GasHint))
}

// BuildAndRelay runs nonce lookup, calldata, request assembly, signing with gas estimation
// and submission in order. The hash the relayer returns is passed through as is.
func (r *Relayer) BuildAndRelay(ctx context.Context, chainCtx *ChainContext, strategy CalldataStrategy) (*PendingTransaction, error) {
	lgr := r.log.New("flow", strategy.Name())
	req, err := r.BuildRequest(ctx, chainCtx, strategy)
	if err != nil {
		return nil, err
	}
	lgr.Info("Built forward request", "to", req.To(), "gas", req.Gas(), "nonce", req.Nonce(), "data", req.Data())

	signed, err := NewGasEstimatingSigner(lgr, r.metr, r.signer, chainCtx.Chain, r.cfg.Estimation, r.clock).SignWithEstimatedGas(ctx, req)
	if err != nil {
		return nil, err
	}

	onDone := r.metr.RecordRelay(strategy.Name())
	pending, err := NewSubmitter(lgr, chainCtx.Relay).Submit(ctx, signed)
	onDone(err)
	if err != nil {
		return nil, err
	}
	lgr.Info("Relay accepted request", "tx", pending.Hash)
	return pending, nil
}
