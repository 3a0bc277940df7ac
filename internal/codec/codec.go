// Package codec holds the pure helpers shared by the signing and verification
// paths: address and message validation, UTF-8 to hex encoding, and the
// EIP-191 personal-message digest.
package codec

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// MaxMessageLength is the largest message (in characters, after trimming)
// accepted for signing.
const MaxMessageLength = 10000

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a syntactically valid Ethereum address:
// 0x followed by exactly 40 hex digits. EIP-55 checksum casing is not
// enforced; comparisons elsewhere are case-insensitive.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// IsValidMessage reports whether s is signable: non-empty after trimming and
// at most MaxMessageLength characters.
func IsValidMessage(s string) bool {
	return IsValidMessageMax(s, MaxMessageLength)
}

// IsValidMessageMax is IsValidMessage with an explicit length cap.
func IsValidMessageMax(s string, maxLen int) bool {
	trimmed := strings.TrimSpace(s)
	return len(trimmed) > 0 && len(trimmed) <= maxLen
}

// EncodeToHex renders the UTF-8 bytes of s as lowercase hex with a 0x prefix.
// Go strings are already UTF-8 byte sequences, so multi-byte code points
// (accents, emoji) encode byte-for-byte without surrogate handling.
func EncodeToHex(s string) string {
	return "0x" + hex.EncodeToString([]byte(s))
}

// DecodeHexString reverses EncodeToHex, returning the original UTF-8 string.
func DecodeHexString(s string) (string, error) {
	if !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("hex string missing 0x prefix")
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return "", fmt.Errorf("invalid hex string: %w", err)
	}
	return string(b), nil
}

// PersonalMessageHash returns the EIP-191 digest of message:
// keccak256("\x19Ethereum Signed Message:\n" + len(message) + message).
// The prefix prevents signed messages from being replayed as transactions.
func PersonalMessageHash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix), message)
}
