package gasless

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/mantlenetworkio/gasless/op-service/signer"
)

type RelayRequestMetadata struct {
	Signature hexutil.Bytes `json:"signature"`
}

// SignedRelayRequest is the payload a gas relayer accepts.
type SignedRelayRequest struct {
	ForwardRequest apitypes.TypedData   `json:"forwardRequest"`
	Metadata       RelayRequestMetadata `json:"metadata"`
	// EstimatedGas is the raw estimate the signed gas was derived from.
	EstimatedGas uint64 `json:"-"`

	request ForwardRequest
}

// Request returns the request that was signed.
func (r *SignedRelayRequest) Request() ForwardRequest {
	return r.request
}

// RecoverSigner returns the account the signature recovers to.
func (r *SignedRelayRequest) RecoverSigner() (common.Address, error) {
	return signer.RecoverTypedDataSigner(r.ForwardRequest, r.Metadata.Signature)
}

// PendingTransaction is the handle the relayer returned. It is not tracked further.
type PendingTransaction struct {
	Hash common.Hash
}

type RelaySender interface {
	SendRelayRequest(ctx context.Context, payload []byte) (common.Hash, error)
}

type Submitter struct {
	log   log.Logger
	relay RelaySender
}

func NewSubmitter(log log.Logger, relay RelaySender) *Submitter {
	return &Submitter{log: log, relay: relay}
}

// Submit sends req to the relayer once. Relayer errors are returned as they were received.
func (s *Submitter) Submit(ctx context.Context, req *SignedRelayRequest) (*PendingTransaction, error) {
	if req == nil || len(req.Metadata.Signature) == 0 {
		return nil, fmt.Errorf("%w: request is not signed", ErrInput)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: relay payload: %w", ErrEncoding, err)
	}
	s.log.Debug("Submitting relay request", "size", len(payload))
	hash, err := s.relay.SendRelayRequest(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	return &PendingTransaction{Hash: hash}, nil
}
