package gasless

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/gasless/op-service/signer"
)

const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	testForwarder = common.HexToAddress("0x52C84043CD9c865236f11d9Fc9F56aa003c1f922")
	testRecipient = common.HexToAddress("0x5DB9A7629912EBF95876228C24A848de0bfB43A9")
	testSuffix    = "bytes32 ABCDEFGHIJKLMNOPQRSTGSN)"
)

func testSigner(t *testing.T) *signer.LocalSigner {
	key, err := signer.ParsePrivateKey(testKeyHex)
	require.NoError(t, err)
	return signer.NewLocalSigner(key)
}

func testDomain(chainID int64) Domain {
	return Domain{
		Name:              "my domain name",
		Version:           "my domain version",
		ChainID:           big.NewInt(chainID),
		VerifyingContract: testForwarder,
	}
}

func testRequest(t *testing.T, from common.Address, opts ...RequestOption) ForwardRequest {
	ext := TypeExtension{TypeName: "ForwardRequest", TypeSuffixData: testSuffix}
	req, err := NewForwardRequest(testDomain(1), from, testRecipient, big.NewInt(7), []byte{0xd0, 0x9d, 0xe0, 0x8a}, ext, opts...)
	require.NoError(t, err)
	return req
}

// unpackExecute decodes forwarder execute calldata back into its arguments.
func unpackExecute(t *testing.T, data []byte) (forwardRequestTuple, [32]byte, [32]byte, []byte, []byte) {
	method := forwarderABI.Methods["execute"]
	require.Equal(t, method.ID, data[:4])
	vals, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, vals, 5)
	tuple := *abi.ConvertType(vals[0], new(forwardRequestTuple)).(*forwardRequestTuple)
	return tuple, vals[1].([32]byte), vals[2].([32]byte), vals[3].([]byte), vals[4].([]byte)
}

// flakyEstimator fails the first failures calls, then returns gas.
type flakyEstimator struct {
	mu       sync.Mutex
	failures int
	gas      uint64
	calls    []ethereum.CallMsg
}

func (f *flakyEstimator) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)
	if len(f.calls) <= f.failures {
		return 0, errors.New("execution reverted")
	}
	return f.gas, nil
}
