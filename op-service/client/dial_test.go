package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/gasless/op-service/testlog"
)

const testConnectTimeout = time.Second

func localListener(t *testing.T) net.Listener {
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })
	return listener
}

func closedPort(t *testing.T) string {
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func TestIsURLAvailable(t *testing.T) {
	open := localListener(t).Addr().String()
	closed := closedPort(t)

	tests := []struct {
		addr string
		exp  bool
	}{
		{addr: "http://" + open, exp: true},
		{addr: "ws://" + open + "/rpc", exp: true},
		{addr: "http://" + closed, exp: false},
		{addr: "https://" + closed + "/rpc", exp: false},
		{addr: "http://localhost:0", exp: false},
		{addr: "://not a url", exp: false},
		// unknown schemes without a port fail open
		{addr: "mailto://example.com", exp: true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			require.Equal(t, tt.exp, IsURLAvailable(context.Background(), tt.addr, testConnectTimeout))
		})
	}
}

func TestCheckAndDial(t *testing.T) {
	lgr := testlog.Logger(t, log.LevelDebug)

	cl, err := CheckAndDial(context.Background(), lgr, "http://"+localListener(t).Addr().String(), testConnectTimeout)
	require.NoError(t, err)
	cl.Close()

	addr := "http://" + closedPort(t)
	_, err = CheckAndDial(context.Background(), lgr, addr, testConnectTimeout)
	require.ErrorContains(t, err, "address unavailable ("+addr+")")

	_, err = CheckAndDial(context.Background(), lgr, "mailto://example.com", testConnectTimeout)
	require.ErrorContains(t, err, "failed to dial address")
}
