package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport scripts provider responses per method and records calls.
type fakeTransport struct {
	calls     []string
	handler   func(method string, params []any) (json.RawMessage, error)
	listeners listenerSet
}

func (f *fakeTransport) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	f.calls = append(f.calls, method)
	return f.handler(method, params)
}

func (f *fakeTransport) Subscribe(event string, fn func(json.RawMessage)) func() {
	return f.listeners.subscribe(event, fn)
}

func respond(v any) func(string, []any) (json.RawMessage, error) {
	return func(string, []any) (json.RawMessage, error) {
		raw, _ := json.Marshal(v)
		return raw, nil
	}
}

const testAddress = "0x742d35cc6634c0532925a3b844bc9e7595f0beb0"

func newTestGateway(handler func(string, []any) (json.RawMessage, error)) (*Gateway, *fakeTransport) {
	transport := &fakeTransport{handler: handler}
	return New(transport, zerolog.Nop()), transport
}

func TestGateway_RequestAccounts(t *testing.T) {
	t.Run("returns validated accounts", func(t *testing.T) {
		gw, _ := newTestGateway(respond([]string{testAddress}))

		accounts, err := gw.RequestAccounts(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{testAddress}, accounts)
	})

	t.Run("empty list maps to unauthorized", func(t *testing.T) {
		gw, _ := newTestGateway(respond([]string{}))

		_, err := gw.RequestAccounts(context.Background())
		require.Error(t, err)
		assert.Equal(t, CodeUnauthorized, Code(err))
	})

	t.Run("malformed response maps to unauthorized", func(t *testing.T) {
		gw, _ := newTestGateway(respond("not-a-list"))

		_, err := gw.RequestAccounts(context.Background())
		require.Error(t, err)
		assert.Equal(t, CodeUnauthorized, Code(err))
	})

	t.Run("invalid address in list is a local error", func(t *testing.T) {
		gw, _ := newTestGateway(respond([]string{"0xnothex"}))

		_, err := gw.RequestAccounts(context.Background())
		require.Error(t, err)
		assert.Equal(t, CodeLocal, Code(err))
	})

	t.Run("user rejection passes through", func(t *testing.T) {
		gw, _ := newTestGateway(func(string, []any) (json.RawMessage, error) {
			return nil, &Error{Code: CodeUserRejected, Message: "User rejected the request"}
		})

		_, err := gw.RequestAccounts(context.Background())
		require.Error(t, err)
		assert.Equal(t, CodeUserRejected, Code(err))
	})

	t.Run("nil transport maps to disconnected", func(t *testing.T) {
		gw := New(nil, zerolog.Nop())

		_, err := gw.RequestAccounts(context.Background())
		require.Error(t, err)
		assert.Equal(t, CodeDisconnected, Code(err))
		assert.False(t, gw.Available())
	})
}

func TestGateway_Accounts(t *testing.T) {
	t.Run("returns accounts without prompting", func(t *testing.T) {
		gw, transport := newTestGateway(respond([]string{testAddress}))

		accounts := gw.Accounts(context.Background())
		assert.Equal(t, []string{testAddress}, accounts)
		assert.Equal(t, []string{"eth_accounts"}, transport.calls)
	})

	t.Run("filters invalid addresses", func(t *testing.T) {
		gw, _ := newTestGateway(respond([]string{"bogus", testAddress}))

		assert.Equal(t, []string{testAddress}, gw.Accounts(context.Background()))
	})

	t.Run("empty on transport error", func(t *testing.T) {
		gw, _ := newTestGateway(func(string, []any) (json.RawMessage, error) {
			return nil, errors.New("boom")
		})

		assert.Empty(t, gw.Accounts(context.Background()))
	})

	t.Run("empty on nil transport", func(t *testing.T) {
		gw := New(nil, zerolog.Nop())
		assert.Empty(t, gw.Accounts(context.Background()))
	})
}

// selectingTransport is a fakeTransport that caches an active account.
type selectingTransport struct {
	fakeTransport
	selected string
}

func (s *selectingTransport) SelectedAddress() string { return s.selected }

func TestGateway_SelectedAddress(t *testing.T) {
	t.Run("returns the cached selection", func(t *testing.T) {
		transport := &selectingTransport{selected: testAddress}
		gw := New(transport, zerolog.Nop())
		assert.Equal(t, testAddress, gw.SelectedAddress())
	})

	t.Run("invalid selection is dropped", func(t *testing.T) {
		transport := &selectingTransport{selected: "0xbogus"}
		gw := New(transport, zerolog.Nop())
		assert.Empty(t, gw.SelectedAddress())
	})

	t.Run("transports without a selection return empty", func(t *testing.T) {
		gw, _ := newTestGateway(respond(nil))
		assert.Empty(t, gw.SelectedAddress())
	})

	t.Run("nil transport returns empty", func(t *testing.T) {
		gw := New(nil, zerolog.Nop())
		assert.Empty(t, gw.SelectedAddress())
	})
}

func TestGateway_Balance(t *testing.T) {
	t.Run("converts hex quantity to decimal wei", func(t *testing.T) {
		gw, transport := newTestGateway(respond("0xde0b6b3a7640000")) // 1 ETH

		balance, err := gw.Balance(context.Background(), testAddress)
		require.NoError(t, err)
		assert.Equal(t, "1000000000000000000", balance)
		assert.Equal(t, []string{"eth_getBalance"}, transport.calls)
	})

	t.Run("rejects invalid address locally", func(t *testing.T) {
		gw, transport := newTestGateway(respond("0x0"))

		_, err := gw.Balance(context.Background(), "0x123")
		require.Error(t, err)
		assert.Equal(t, CodeLocal, Code(err))
		assert.Empty(t, transport.calls)
	})

	t.Run("malformed response is a typed error", func(t *testing.T) {
		gw, _ := newTestGateway(respond(12345))

		_, err := gw.Balance(context.Background(), testAddress)
		require.Error(t, err)

		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Message, "invalid balance format")
	})
}

func TestGateway_ChainID(t *testing.T) {
	t.Run("returns hex chain id", func(t *testing.T) {
		gw, _ := newTestGateway(respond("0x1"))

		chainID, err := gw.ChainID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "0x1", chainID)
	})

	t.Run("non-hex response is a typed error", func(t *testing.T) {
		gw, _ := newTestGateway(respond("mainnet"))

		_, err := gw.ChainID(context.Background())
		require.Error(t, err)
		assert.Equal(t, CodeLocal, Code(err))
	})
}

func TestGateway_SignPersonalMessage(t *testing.T) {
	validSig := "0x" + repeatHex(130)

	t.Run("hex-encodes message and returns signature", func(t *testing.T) {
		var gotParams []any
		gw, _ := newTestGateway(func(method string, params []any) (json.RawMessage, error) {
			gotParams = params
			raw, _ := json.Marshal(validSig)
			return raw, nil
		})

		sig, err := gw.SignPersonalMessage(context.Background(), "Hello", testAddress)
		require.NoError(t, err)
		assert.Equal(t, validSig, sig)
		require.Len(t, gotParams, 2)
		assert.Equal(t, "0x48656c6c6f", gotParams[0])
		assert.Equal(t, testAddress, gotParams[1])
	})

	t.Run("empty message fails without provider round-trip", func(t *testing.T) {
		gw, transport := newTestGateway(respond(validSig))

		_, err := gw.SignPersonalMessage(context.Background(), "   ", testAddress)
		require.Error(t, err)
		assert.Empty(t, transport.calls)
	})

	t.Run("invalid address fails without provider round-trip", func(t *testing.T) {
		gw, transport := newTestGateway(respond(validSig))

		_, err := gw.SignPersonalMessage(context.Background(), "Hello", "0xbad")
		require.Error(t, err)
		assert.Empty(t, transport.calls)
	})

	t.Run("short signature response is rejected", func(t *testing.T) {
		gw, _ := newTestGateway(respond("0x1234"))

		_, err := gw.SignPersonalMessage(context.Background(), "Hello", testAddress)
		require.Error(t, err)

		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Message, "invalid signature format")
	})

	t.Run("non-hex signature response is rejected", func(t *testing.T) {
		gw, _ := newTestGateway(respond("0x" + repeatHex(128) + "zz"))

		_, err := gw.SignPersonalMessage(context.Background(), "Hello", testAddress)
		require.Error(t, err)
	})
}

func TestGateway_Subscriptions(t *testing.T) {
	t.Run("delivers account changes", func(t *testing.T) {
		gw, transport := newTestGateway(respond(nil))

		var got []string
		unsubscribe := gw.OnAccountsChanged(func(accounts []string) { got = accounts })
		defer unsubscribe()

		payload, _ := json.Marshal([]string{testAddress})
		transport.listeners.emit(EventAccountsChanged, payload)
		assert.Equal(t, []string{testAddress}, got)
	})

	t.Run("malformed payload delivers empty list", func(t *testing.T) {
		gw, transport := newTestGateway(respond(nil))

		called := false
		var got []string
		unsubscribe := gw.OnAccountsChanged(func(accounts []string) {
			called = true
			got = accounts
		})
		defer unsubscribe()

		transport.listeners.emit(EventAccountsChanged, json.RawMessage(`{"not":"a list"}`))
		assert.True(t, called)
		assert.Empty(t, got)
	})

	t.Run("unsubscribe stops delivery and is idempotent", func(t *testing.T) {
		gw, transport := newTestGateway(respond(nil))

		count := 0
		unsubscribe := gw.OnChainChanged(func(string) { count++ })

		payload, _ := json.Marshal("0x1")
		transport.listeners.emit(EventChainChanged, payload)
		assert.Equal(t, 1, count)

		unsubscribe()
		unsubscribe() // second call must be harmless

		transport.listeners.emit(EventChainChanged, payload)
		assert.Equal(t, 1, count)
	})
}

// repeatHex returns n hex digits.
func repeatHex(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = "0123456789abcdef"[i%16]
	}
	return string(b)
}
