package gasless

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Param describes a single function argument by name and solidity type.
type Param struct {
	Name string
	Type string
}

// Function describes the signature of a contract function.
type Function struct {
	Name    string
	Inputs  []Param
	Outputs []Param
}

var (
	IncrementFunction = Function{Name: "increment"}
	WithdrawFunction  = Function{
		Name:   "withdraw",
		Inputs: []Param{{Name: "amount", Type: "uint256"}},
	}
	GetNonceFunction = Function{
		Name:    "getNonce",
		Inputs:  []Param{{Name: "from", Type: "address"}},
		Outputs: []Param{{Name: "nonce", Type: "uint256"}},
	}
)

func toArguments(params []Param) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(params))
	for _, p := range params {
		typ, err := abi.NewType(p.Type, "", nil)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		args = append(args, abi.Argument{Name: p.Name, Type: typ})
	}
	return args, nil
}

func (f Function) method() (abi.Method, error) {
	inputs, err := toArguments(f.Inputs)
	if err != nil {
		return abi.Method{}, fmt.Errorf("%w: inputs of %s: %w", ErrEncoding, f.Name, err)
	}
	outputs, err := toArguments(f.Outputs)
	if err != nil {
		return abi.Method{}, fmt.Errorf("%w: outputs of %s: %w", ErrEncoding, f.Name, err)
	}
	return abi.NewMethod(f.Name, f.Name, abi.Function, "nonpayable", false, false, inputs, outputs), nil
}

// Signature returns the canonical signature, e.g. "getNonce(address)".
func (f Function) Signature() (string, error) {
	m, err := f.method()
	if err != nil {
		return "", err
	}
	return m.Sig, nil
}

// Selector returns the first four bytes of the keccak256 hash of the canonical signature.
func (f Function) Selector() ([]byte, error) {
	m, err := f.method()
	if err != nil {
		return nil, err
	}
	return common.CopyBytes(m.ID), nil
}

// EncodeCalldata encodes the selector of fn followed by the ABI encoding of args.
func EncodeCalldata(fn Function, args ...any) ([]byte, error) {
	m, err := fn.method()
	if err != nil {
		return nil, err
	}
	packed, err := m.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("%w: arguments of %s: %w", ErrEncoding, m.Sig, err)
	}
	return append(common.CopyBytes(m.ID), packed...), nil
}

// DecodeOutputs decodes the return data of a call to fn.
func DecodeOutputs(fn Function, data []byte) ([]any, error) {
	m, err := fn.method()
	if err != nil {
		return nil, err
	}
	return m.Outputs.Unpack(data)
}

// CallContext is what a calldata strategy may depend on.
type CallContext struct {
	ChainID   *big.Int
	From      common.Address
	Recipient common.Address
	Nonce     *big.Int
}

// CalldataStrategy produces the calldata of the call that gets forwarded to the recipient.
type CalldataStrategy interface {
	Name() string
	Calldata(ctx CallContext) ([]byte, error)
}

// IncrementCall calls increment() on a counter contract.
type IncrementCall struct{}

func (IncrementCall) Name() string {
	return "counter-increment"
}

func (IncrementCall) Calldata(CallContext) ([]byte, error) {
	return EncodeCalldata(IncrementFunction)
}

// FaucetWithdrawCall calls withdraw(amount) on a faucet contract.
type FaucetWithdrawCall struct {
	Amount *uint256.Int
}

func (FaucetWithdrawCall) Name() string {
	return "faucet-withdraw"
}

func (c FaucetWithdrawCall) Calldata(CallContext) ([]byte, error) {
	if c.Amount == nil {
		return nil, fmt.Errorf("%w: withdraw amount is required", ErrInput)
	}
	return EncodeCalldata(WithdrawFunction, c.Amount.ToBig())
}
