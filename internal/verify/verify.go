// Package verify checks that a (message, signature, address) triple is
// cryptographically consistent via secp256k1 public-key recovery. It is
// stateless and independent of any wallet session.
package verify

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/yolodolo42/ethsign/internal/codec"
)

// Malformed-input errors. These are caller bugs and are raised; a well-formed
// signature that simply does not match is a legitimate false result, not an
// error.
var (
	ErrInvalidAddress         = errors.New("invalid Ethereum address")
	ErrInvalidSignatureFormat = errors.New("invalid signature format: signature must be 132 characters (0x + 130 hex chars)")
	ErrEmptyMessage           = errors.New("message cannot be empty")
)

const signatureHexLength = 132 // 0x + r(64) + s(64) + v(2)

// Verify reports whether signature was produced over message by the key
// behind address. The address comparison is case-insensitive; EIP-55
// checksum casing is not enforced.
func Verify(message, signature, address string) (bool, error) {
	if !codec.IsValidAddress(address) {
		return false, ErrInvalidAddress
	}

	sig, err := decodeSignature(signature)
	if err != nil {
		return false, err
	}

	if strings.TrimSpace(message) == "" {
		return false, ErrEmptyMessage
	}

	recovered, ok := recoverAddress([]byte(message), sig)
	if !ok {
		// Recovery failure on a well-formed signature (invalid curve point,
		// r/s out of range) is a negative result, not a fault.
		return false, nil
	}

	return strings.EqualFold(recovered.Hex(), address), nil
}

// RecoverSigner returns the address that produced signature over message,
// for callers that want the signer rather than a yes/no answer.
func RecoverSigner(message, signature string) (common.Address, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return common.Address{}, err
	}
	if strings.TrimSpace(message) == "" {
		return common.Address{}, ErrEmptyMessage
	}

	recovered, ok := recoverAddress([]byte(message), sig)
	if !ok {
		return common.Address{}, errors.New("signature does not recover to a valid public key")
	}
	return recovered, nil
}

// decodeSignature enforces the 132-character 0x-hex wire format and returns
// the 65 raw bytes (r || s || v).
func decodeSignature(signature string) ([]byte, error) {
	if len(signature) != signatureHexLength || !strings.HasPrefix(signature, "0x") {
		return nil, ErrInvalidSignatureFormat
	}
	sig, err := hex.DecodeString(signature[2:])
	if err != nil {
		return nil, ErrInvalidSignatureFormat
	}
	return sig, nil
}

// recoverAddress runs ECDSA public-key recovery over the EIP-191 digest of
// message and derives the signer address (low 20 bytes of the keccak hash of
// the uncompressed public key). ok is false when recovery fails.
func recoverAddress(message, sig []byte) (common.Address, bool) {
	// Normalize v: the wire carries 27/28, recovery wants 0/1.
	recSig := make([]byte, len(sig))
	copy(recSig, sig)
	if recSig[64] >= 27 {
		recSig[64] -= 27
	}
	if recSig[64] > 1 {
		return common.Address{}, false
	}

	digest := codec.PersonalMessageHash(message)
	pub, err := crypto.SigToPub(digest, recSig)
	if err != nil {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(*pub), true
}
