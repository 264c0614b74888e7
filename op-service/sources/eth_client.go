// Package sources exports the clients used to reach the chain and the gas relayer.
//
// [EthClient] reads chain data over a JSON-RPC connection.
// [RelayClient] hands signed relay requests to a gas relayer.
//
// Both wrap a [client.RPC], which owns dialing, timeouts and transport retries.
package sources

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/gasless/op-service/client"
)

type EthClient struct {
	client client.RPC
	log    log.Logger
}

func NewEthClient(client client.RPC, log log.Logger) *EthClient {
	return &EthClient{client: client, log: log}
}

func (s *EthClient) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := s.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}
	return (*big.Int)(&id), nil
}

// CallContract executes a read-only call against the latest block.
func (s *EthClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	var result hexutil.Bytes
	if err := s.client.CallContext(ctx, &result, "eth_call", toCallArg(msg), "latest"); err != nil {
		return nil, err
	}
	s.log.Trace("Called contract", "to", msg.To, "data", msg.Data, "result", []byte(result))
	return result, nil
}

// EstimateGas asks the node how much gas msg needs. A reverting call surfaces as an error.
func (s *EthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas hexutil.Uint64
	if err := s.client.CallContext(ctx, &gas, "eth_estimateGas", toCallArg(msg)); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

func (s *EthClient) Close() {
	s.client.Close()
}

func toCallArg(msg ethereum.CallMsg) any {
	arg := map[string]any{
		"from": msg.From,
		"to":   msg.To,
	}
	if len(msg.Data) > 0 {
		arg["data"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	if msg.GasPrice != nil {
		arg["gasPrice"] = (*hexutil.Big)(msg.GasPrice)
	}
	return arg
}
