package provider

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/yolodolo42/ethsign/internal/codec"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountLocked   = errors.New("account is locked")
	ErrInvalidKey      = errors.New("invalid private key")
)

// KeystoreManager manages the encrypted keystore directory and its accounts.
type KeystoreManager struct {
	ks      *keystore.KeyStore
	dataDir string
}

// NewKeystoreManager opens (creating if needed) the keystore under dataDir.
func NewKeystoreManager(dataDir string) (*KeystoreManager, error) {
	keystoreDir := filepath.Join(dataDir, "keystore")
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}

	// StandardScryptN and StandardScryptP are secure defaults
	ks := keystore.NewKeyStore(keystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)

	return &KeystoreManager{
		ks:      ks,
		dataDir: dataDir,
	}, nil
}

// CreateAccount creates a new account encrypted with password.
func (km *KeystoreManager) CreateAccount(password string) (accounts.Account, error) {
	return km.ks.NewAccount(password)
}

// ImportKey imports a hex private key and encrypts it with password.
func (km *KeystoreManager) ImportKey(privateKeyHex string, password string) (accounts.Account, error) {
	if len(privateKeyHex) >= 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return accounts.Account{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return km.ks.ImportECDSA(privateKey, password)
}

// ListAccounts returns all accounts in the keystore.
func (km *KeystoreManager) ListAccounts() []accounts.Account {
	return km.ks.Accounts()
}

// Unlock decrypts the key for address and returns a KeystoreTransport that
// serves provider requests from it.
func (km *KeystoreManager) Unlock(address common.Address, password, chainID string) (*KeystoreTransport, error) {
	var target *accounts.Account
	for _, acc := range km.ks.Accounts() {
		if acc.Address == address {
			target = &acc
			break
		}
	}
	if target == nil {
		return nil, ErrAccountNotFound
	}

	keyJSON, err := km.ks.Export(*target, password, password)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock account: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}

	return NewKeyTransport(key.PrivateKey, chainID), nil
}

// KeystoreTransport is a local Transport backed by an in-memory secp256k1
// key. It answers the account and chain queries a remote wallet would and
// signs personal messages without any external round-trip. Locking the
// transport zeros the key and notifies accountsChanged listeners with an
// empty list, the same signal a wallet emits on disconnect.
type KeystoreTransport struct {
	// mu protects key so signing cannot race with Lock() zeroing the key
	// material.
	mu        sync.RWMutex
	key       *ecdsa.PrivateKey // nil when locked
	address   common.Address
	chainID   string
	listeners listenerSet
}

// NewKeyTransport wraps an already-decrypted private key. chainID is the
// 0x-hex chain id reported by eth_chainId.
func NewKeyTransport(key *ecdsa.PrivateKey, chainID string) *KeystoreTransport {
	if chainID == "" {
		chainID = "0x1"
	}
	return &KeystoreTransport{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}
}

// Address returns the transport's account address.
func (t *KeystoreTransport) Address() common.Address {
	return t.address
}

// SelectedAddress returns the active account, or "" when locked.
func (t *KeystoreTransport) SelectedAddress() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.key == nil {
		return ""
	}
	return strings.ToLower(t.address.Hex())
}

// Request dispatches the supported EIP-1193 methods locally.
func (t *KeystoreTransport) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch method {
	case "eth_accounts", "eth_requestAccounts":
		return json.Marshal(t.accountList())
	case "eth_chainId":
		return json.Marshal(t.chainID)
	case "eth_getBalance":
		// No chain connection behind a bare key; report zero.
		return json.Marshal("0x0")
	case "personal_sign":
		return t.personalSign(params)
	default:
		return nil, &Error{Code: CodeUnsupportedMethod, Message: "unsupported method: " + method}
	}
}

// Subscribe registers fn for event notifications.
func (t *KeystoreTransport) Subscribe(event string, fn func(json.RawMessage)) func() {
	return t.listeners.subscribe(event, fn)
}

// Lock zeros the private key material so it cannot be extracted from memory
// afterwards. Safe to call multiple times; the first call emits an empty
// accountsChanged notification.
func (t *KeystoreTransport) Lock() {
	t.mu.Lock()
	locked := t.key != nil
	if locked {
		t.key.D.SetInt64(0)
		t.key = nil
	}
	t.mu.Unlock()

	if locked {
		payload, _ := json.Marshal([]string{})
		t.listeners.emit(EventAccountsChanged, payload)
	}
}

func (t *KeystoreTransport) accountList() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.key == nil {
		return []string{}
	}
	return []string{strings.ToLower(t.address.Hex())}
}

// personalSign expects params [messageHex, address] and returns the 65-byte
// r||s||v signature hex-encoded, with v in {27,28}.
func (t *KeystoreTransport) personalSign(params []any) (json.RawMessage, error) {
	if len(params) != 2 {
		return nil, errLocal("personal_sign expects [message, address] params")
	}
	messageHex, ok := params[0].(string)
	if !ok {
		return nil, errLocal("personal_sign message must be a hex string")
	}
	address, ok := params[1].(string)
	if !ok || !codec.IsValidAddress(address) {
		return nil, errLocal("personal_sign address is invalid")
	}

	message, err := codec.DecodeHexString(messageHex)
	if err != nil {
		return nil, errLocal("personal_sign message is not valid hex: %v", err)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.key == nil {
		return nil, &Error{Code: CodeUnauthorized, Message: ErrAccountLocked.Error()}
	}
	if !strings.EqualFold(address, t.address.Hex()) {
		return nil, &Error{Code: CodeUnauthorized, Message: "address not managed by this wallet"}
	}

	digest := codec.PersonalMessageHash([]byte(message))
	sig, err := crypto.Sign(digest, t.key)
	if err != nil {
		return nil, errLocal("signing failed: %v", err)
	}

	// Ethereum's ecrecover convention wants v in {27,28}, not crypto.Sign's
	// {0,1}.
	sig[64] += 27

	return json.Marshal(hexutil.Encode(sig))
}
