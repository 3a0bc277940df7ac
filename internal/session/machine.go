// Package session tracks the one wallet session of a running instance:
// connect, disconnect, account-change and chain-change transitions driven by
// provider gateway events.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yolodolo42/ethsign/internal/provider"
)

// State is the connection state of the session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ErrNoProvider is returned by Connect when no wallet transport is attached.
var ErrNoProvider = errors.New("no Ethereum provider installed")

// Session is a snapshot of the connected wallet. Balance is wei as a decimal
// string, "0" when unknown; ChainID is the 0x-hex chain id, empty when
// unknown.
type Session struct {
	Account string
	ChainID string
	Balance string
}

// Machine owns the session state. All mutations happen under mu; every
// await-then-mutate path is gated on a generation counter so an operation
// abandoned by its caller (or superseded by a disconnect) cannot apply a
// stale result.
type Machine struct {
	mu      sync.Mutex
	gateway *provider.Gateway
	log     zerolog.Logger

	state   State
	session Session
	gen     uint64

	unsubs   []func()
	resetFns []func()
	closed   bool
}

// New creates a machine bound to gateway and subscribes to its account and
// chain change events. Close releases the subscriptions.
func New(gateway *provider.Gateway, logger zerolog.Logger) *Machine {
	m := &Machine{
		gateway: gateway,
		log:     logger,
		session: Session{Balance: "0"},
	}

	m.unsubs = append(m.unsubs,
		gateway.OnAccountsChanged(m.handleAccountsChanged),
		gateway.OnChainChanged(m.handleChainChanged),
	)
	return m
}

// State returns the current connection state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns a snapshot of the current session.
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// OnReset registers fn to run whenever the session disconnects, so dependent
// consumers (signing input, history filter) can drop their transient state.
func (m *Machine) OnReset(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetFns = append(m.resetFns, fn)
}

// Connect drives Disconnected -> Connecting -> Connected. Without a
// transport it stays Disconnected and returns ErrNoProvider. A rejection or
// provider failure returns to Disconnected with the typed error. Balance and
// chain id fetches are best-effort: their failures are logged, never fatal.
func (m *Machine) Connect(ctx context.Context) error {
	if !m.gateway.Available() {
		return ErrNoProvider
	}

	m.mu.Lock()
	m.state = StateConnecting
	gen := m.gen
	m.mu.Unlock()

	accounts, err := m.gateway.RequestAccounts(ctx)

	m.mu.Lock()
	if m.gen != gen {
		// Superseded by a disconnect or a newer connect; drop the result.
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		m.log.Debug().Err(err).Msg("wallet connection failed")
		return err
	}
	m.state = StateConnected
	m.session.Account = accounts[0]
	m.mu.Unlock()

	m.log.Info().Str("address", accounts[0]).Msg("wallet connected")
	m.fetchInfo(ctx, gen, accounts[0])
	return nil
}

// Resume reconciles with provider state already granted to this client
// without a Connecting flash: the transport's cached selected address first,
// then a non-prompting account query. It does nothing when the provider is
// absent or reports no accounts.
func (m *Machine) Resume(ctx context.Context) {
	if !m.gateway.Available() {
		return
	}

	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	accounts := []string{}
	if selected := m.gateway.SelectedAddress(); selected != "" {
		accounts = []string{selected}
	} else {
		accounts = m.gateway.Accounts(ctx)
	}
	if len(accounts) == 0 {
		return
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.state = StateConnected
	m.session.Account = accounts[0]
	m.mu.Unlock()

	m.fetchInfo(ctx, gen, accounts[0])
}

// Disconnect resets the session to its empty state and notifies reset
// listeners. It invalidates any in-flight connect or refresh.
func (m *Machine) Disconnect() {
	m.mu.Lock()
	m.gen++
	m.state = StateDisconnected
	m.session = Session{Balance: "0"}
	resetFns := append([]func(){}, m.resetFns...)
	m.mu.Unlock()

	m.log.Info().Msg("wallet disconnected")
	for _, fn := range resetFns {
		fn()
	}
}

// Refresh re-fetches balance and chain id for the connected account without
// changing it. No-op unless Connected.
func (m *Machine) Refresh(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	gen := m.gen
	account := m.session.Account
	m.mu.Unlock()

	m.fetchInfo(ctx, gen, account)
}

// Close releases the provider subscriptions. Idempotent; the machine must
// not receive callbacks after teardown.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// fetchInfo updates balance and chain id, applying results only while gen is
// still current.
func (m *Machine) fetchInfo(ctx context.Context, gen uint64, account string) {
	balance, err := m.gateway.Balance(ctx, account)
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to fetch balance")
	}
	chainID, cerr := m.gateway.ChainID(ctx)
	if cerr != nil {
		m.log.Warn().Err(cerr).Msg("failed to fetch chain id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.state != StateConnected {
		return
	}
	if err == nil {
		m.session.Balance = balance
	}
	if cerr == nil {
		m.session.ChainID = chainID
	}
}

// handleAccountsChanged reacts to wallet-side account switches. Zero
// accounts means the provider revoked access: full disconnect.
func (m *Machine) handleAccountsChanged(accounts []string) {
	if len(accounts) == 0 {
		m.mu.Lock()
		disconnect := m.state != StateDisconnected
		m.mu.Unlock()
		if disconnect {
			m.Disconnect()
		}
		return
	}

	m.mu.Lock()
	m.state = StateConnected
	m.session.Account = accounts[0]
	gen := m.gen
	m.mu.Unlock()

	m.log.Info().Str("address", accounts[0]).Msg("active account changed")
	m.fetchInfo(context.Background(), gen, accounts[0])
}

func (m *Machine) handleChainChanged(chainID string) {
	m.log.Info().Str("chain_id", chainID).Msg("chain changed")
	m.Refresh(context.Background())
}
