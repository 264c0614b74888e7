package sources

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mantlenetworkio/gasless/op-service/client"
)

// DefaultRelayMethod is the JSON-RPC method gas relayers accept serialized relay requests on.
const DefaultRelayMethod = "eth_sendRawTransaction"

type RelayClient struct {
	client client.RPC
	method string
}

func NewRelayClient(client client.RPC, method string) *RelayClient {
	if method == "" {
		method = DefaultRelayMethod
	}
	return &RelayClient{client: client, method: method}
}

// SendRelayRequest sends the payload as a single hex-encoded raw parameter
// and returns the transaction hash reported by the relayer.
func (cl *RelayClient) SendRelayRequest(ctx context.Context, payload []byte) (common.Hash, error) {
	var hash common.Hash
	err := cl.client.CallContext(ctx, &hash, cl.method, hexutil.Bytes(payload))
	return hash, err
}

func (cl *RelayClient) Close() {
	cl.client.Close()
}
