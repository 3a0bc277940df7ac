package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

const rpcDialTimeout = 10 * time.Second

// RPCTransport serves provider requests over a JSON-RPC endpoint (a node or
// a wallet bridge exposing personal_sign). JSON-RPC nodes do not push wallet
// events, so subscriptions are accepted and never fire.
type RPCTransport struct {
	client *rpc.Client
}

// DialRPC connects to a JSON-RPC endpoint.
func DialRPC(ctx context.Context, url string) (*RPCTransport, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcDialTimeout)
	defer cancel()

	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, &Error{Code: CodeDisconnected, Message: "failed to connect to provider: " + err.Error()}
	}
	return &RPCTransport{client: client}, nil
}

// Request performs one JSON-RPC call. eth_requestAccounts has no node
// equivalent and degrades to eth_accounts, which needs no permission prompt.
func (t *RPCTransport) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if method == "eth_requestAccounts" {
		method = "eth_accounts"
	}

	var raw json.RawMessage
	if err := t.client.CallContext(ctx, &raw, method, params...); err != nil {
		// rpc.Error carries the EIP-1193 code when the endpoint is a wallet
		// bridge; Normalize keeps it.
		return nil, Normalize(err)
	}
	return raw, nil
}

// Subscribe satisfies Transport. Nothing is ever delivered.
func (t *RPCTransport) Subscribe(event string, fn func(json.RawMessage)) func() {
	return func() {}
}

// Close releases the underlying connection.
func (t *RPCTransport) Close() {
	t.client.Close()
}
