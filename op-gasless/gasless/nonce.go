package gasless

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// ResolveNonce reads the current forwarder nonce of from.
// There is no fallback: a stale nonce is rejected on-chain, so every failure is returned.
func ResolveNonce(ctx context.Context, caller ContractCaller, forwarder, from common.Address) (*big.Int, error) {
	data, err := EncodeCalldata(GetNonceFunction, from)
	if err != nil {
		return nil, err
	}
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &forwarder, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: getNonce(%s) on %s: %w", ErrChainQuery, from, forwarder, err)
	}
	values, err := DecodeOutputs(GetNonceFunction, out)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding getNonce result %x: %w", ErrChainQuery, out, err)
	}
	nonce, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected getNonce result type %T", ErrChainQuery, values[0])
	}
	return nonce, nil
}
