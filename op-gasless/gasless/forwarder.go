package gasless

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var forwarderABIString = `[
    {
        "inputs": [{"type": "address", "name": "from"}],
        "name": "getNonce",
        "outputs": [{"type": "uint256", "name": ""}],
        "stateMutability": "view",
        "type": "function"
    },
    {
        "inputs": [
            {
                "components": [
                    {"type": "address", "name": "from"},
                    {"type": "address", "name": "to"},
                    {"type": "uint256", "name": "value"},
                    {"type": "uint256", "name": "gas"},
                    {"type": "uint256", "name": "nonce"},
                    {"type": "bytes", "name": "data"},
                    {"type": "uint256", "name": "validUntilTime"}
                ],
                "type": "tuple",
                "name": "req"
            },
            {"type": "bytes32", "name": "domainSeparator"},
            {"type": "bytes32", "name": "requestTypeHash"},
            {"type": "bytes", "name": "suffixData"},
            {"type": "bytes", "name": "sig"}
        ],
        "name": "execute",
        "outputs": [
            {"type": "bool", "name": "success"},
            {"type": "bytes", "name": "ret"}
        ],
        "stateMutability": "payable",
        "type": "function"
    }
]`

var forwarderABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(forwarderABIString))
	if err != nil {
		panic(fmt.Errorf("invalid forwarder ABI: %w", err))
	}
	return parsed
}()

// forwardRequestTuple mirrors the forwarder's ForwardRequest struct for ABI packing.
type forwardRequestTuple struct {
	From           common.Address
	To             common.Address
	Value          *big.Int
	Gas            *big.Int
	Nonce          *big.Int
	Data           []byte
	ValidUntilTime *big.Int
}

// PackExecute encodes the forwarder call that executes req with the given signature.
func PackExecute(req ForwardRequest, sig []byte) ([]byte, error) {
	hashes, err := req.Hashes()
	if err != nil {
		return nil, err
	}
	tuple := forwardRequestTuple{
		From:           req.from,
		To:             req.to,
		Value:          req.Value(),
		Gas:            new(big.Int).SetUint64(req.gas),
		Nonce:          req.Nonce(),
		Data:           req.Data(),
		ValidUntilTime: req.ValidUntilTime(),
	}
	data, err := forwarderABI.Pack("execute", tuple,
		[32]byte(hashes.DomainSeparator), [32]byte(hashes.RequestTypeHash), hashes.SuffixData, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: execute calldata: %w", ErrEncoding, err)
	}
	return data, nil
}
