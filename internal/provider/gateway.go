// Package provider adapts an external EIP-1193 wallet provider: request
// shaping, response validation, and error normalization. No signing or
// session logic lives here.
package provider

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yolodolo42/ethsign/internal/codec"
)

// Gateway is a thin adapter over a wallet Transport. All operations check
// that a transport is present and reject with a typed *Error on failure.
type Gateway struct {
	transport Transport
	log       zerolog.Logger
}

// New returns a Gateway over transport. A nil transport is allowed and makes
// every prompting operation fail with CodeDisconnected, mirroring a browser
// page with no injected wallet.
func New(transport Transport, logger zerolog.Logger) *Gateway {
	return &Gateway{transport: transport, log: logger}
}

// Available reports whether a transport is attached.
func (g *Gateway) Available() bool {
	return g.transport != nil
}

// RequestAccounts triggers the provider's permission flow and returns at
// least one validated address. An empty or invalid account list maps to
// CodeUnauthorized; a user decline surfaces as CodeUserRejected from the
// transport.
func (g *Gateway) RequestAccounts(ctx context.Context) ([]string, error) {
	if g.transport == nil {
		return nil, errDisconnected()
	}

	raw, err := g.transport.Request(ctx, "eth_requestAccounts")
	if err != nil {
		return nil, Normalize(err)
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil || len(accounts) == 0 {
		return nil, &Error{Code: CodeUnauthorized, Message: "no accounts returned"}
	}
	for _, account := range accounts {
		if !codec.IsValidAddress(account) {
			return nil, errLocal("invalid Ethereum address: %s", account)
		}
	}
	return accounts, nil
}

// SelectedAddress returns the transport's cached active account without any
// round-trip, or "" when the transport keeps no selection.
func (g *Gateway) SelectedAddress() string {
	sel, ok := g.transport.(SelectedAddresser)
	if !ok {
		return ""
	}
	address := sel.SelectedAddress()
	if !codec.IsValidAddress(address) {
		return ""
	}
	return address
}

// Accounts is the non-prompting account query. It never fails: a missing
// transport, a transport error, or a malformed response all yield an empty
// list, and invalid addresses are filtered out.
func (g *Gateway) Accounts(ctx context.Context) []string {
	if g.transport == nil {
		return nil
	}

	raw, err := g.transport.Request(ctx, "eth_accounts")
	if err != nil {
		g.log.Debug().Err(err).Msg("eth_accounts query failed")
		return nil
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil
	}

	valid := accounts[:0]
	for _, account := range accounts {
		if codec.IsValidAddress(account) {
			valid = append(valid, account)
		}
	}
	return valid
}

// Balance returns the latest balance of address in wei as a decimal string.
func (g *Gateway) Balance(ctx context.Context, address string) (string, error) {
	if g.transport == nil {
		return "", errDisconnected()
	}
	if !codec.IsValidAddress(address) {
		return "", errLocal("invalid Ethereum address: %s", address)
	}

	raw, err := g.transport.Request(ctx, "eth_getBalance", address, "latest")
	if err != nil {
		return "", Normalize(err)
	}

	var quantity string
	if err := json.Unmarshal(raw, &quantity); err != nil {
		return "", errLocal("invalid balance format")
	}
	wei, ok := parseQuantity(quantity)
	if !ok {
		return "", errLocal("invalid balance format")
	}
	return wei.String(), nil
}

// ChainID returns the provider's chain id as a 0x-prefixed hex string.
func (g *Gateway) ChainID(ctx context.Context) (string, error) {
	if g.transport == nil {
		return "", errDisconnected()
	}

	raw, err := g.transport.Request(ctx, "eth_chainId")
	if err != nil {
		return "", Normalize(err)
	}

	var chainID string
	if err := json.Unmarshal(raw, &chainID); err != nil || !strings.HasPrefix(chainID, "0x") {
		return "", errLocal("invalid chain ID format")
	}
	return chainID, nil
}

// SignPersonalMessage asks the provider to personal_sign message with the
// key behind address. Inputs are validated locally first so invalid calls
// never reach the provider. The returned signature is always a 132-character
// 0x-prefixed hex string.
func (g *Gateway) SignPersonalMessage(ctx context.Context, message, address string) (string, error) {
	if g.transport == nil {
		return "", errDisconnected()
	}
	if !codec.IsValidMessage(message) {
		return "", errLocal("invalid message: message cannot be empty")
	}
	if !codec.IsValidAddress(address) {
		return "", errLocal("invalid Ethereum address: %s", address)
	}

	raw, err := g.transport.Request(ctx, "personal_sign", codec.EncodeToHex(message), address)
	if err != nil {
		return "", Normalize(err)
	}

	var signature string
	if err := json.Unmarshal(raw, &signature); err != nil || !isSignatureShaped(signature) {
		return "", errLocal("invalid signature format")
	}
	return signature, nil
}

// OnAccountsChanged subscribes fn to account-change notifications. A payload
// that does not decode as an address list is delivered as an empty list,
// which consumers treat as a disconnect.
func (g *Gateway) OnAccountsChanged(fn func(accounts []string)) (unsubscribe func()) {
	if g.transport == nil {
		return func() {}
	}
	return g.transport.Subscribe(EventAccountsChanged, func(payload json.RawMessage) {
		var accounts []string
		if err := json.Unmarshal(payload, &accounts); err != nil {
			accounts = nil
		}
		fn(accounts)
	})
}

// OnChainChanged subscribes fn to chain-change notifications.
func (g *Gateway) OnChainChanged(fn func(chainID string)) (unsubscribe func()) {
	if g.transport == nil {
		return func() {}
	}
	return g.transport.Subscribe(EventChainChanged, func(payload json.RawMessage) {
		var chainID string
		if err := json.Unmarshal(payload, &chainID); err != nil {
			chainID = ""
		}
		fn(chainID)
	})
}

// isSignatureShaped checks the 65-byte r||s||v wire shape: 0x plus 130 hex
// digits.
func isSignatureShaped(s string) bool {
	if len(s) != 132 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// parseQuantity accepts a JSON-RPC quantity in either 0x-hex or plain
// decimal form.
func parseQuantity(s string) (*big.Int, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}
