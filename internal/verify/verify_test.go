package verify

import (
	"crypto/ecdsa"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/ethsign/internal/codec"
)

// signWith produces an honest personal-sign signature in wire format
// (0x-hex, v in {27,28}).
func signWith(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	digest := codec.PersonalMessageHash([]byte(message))
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)
	sig[64] += 27
	return hexutil.Encode(sig)
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
}

func TestVerify_RoundTrip(t *testing.T) {
	t.Run("honest signature verifies", func(t *testing.T) {
		key, address := newKey(t)
		message := "Hello, Ethereum!"

		ok, err := Verify(message, signWith(t, key, message), address)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("verifies against mixed-case claimant", func(t *testing.T) {
		key, _ := newKey(t)
		message := "case insensitive"
		checksummed := crypto.PubkeyToAddress(key.PublicKey).Hex()

		ok, err := Verify(message, signWith(t, key, message), checksummed)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unicode message verifies", func(t *testing.T) {
		key, address := newKey(t)
		message := "signé avec 🔐"

		ok, err := Verify(message, signWith(t, key, message), address)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("accepts v in 0/1 form", func(t *testing.T) {
		key, address := newKey(t)
		message := "raw recovery id"

		digest := codec.PersonalMessageHash([]byte(message))
		sig, err := crypto.Sign(digest, key)
		require.NoError(t, err)

		ok, err := Verify(message, hexutil.Encode(sig), address)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestVerify_Negative(t *testing.T) {
	t.Run("wrong claimant is false not error", func(t *testing.T) {
		key, _ := newKey(t)
		_, otherAddress := newKey(t)
		message := "claimed by the wrong party"

		ok, err := Verify(message, signWith(t, key, message), otherAddress)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("tampered message is false", func(t *testing.T) {
		key, address := newKey(t)

		ok, err := Verify("tampered", signWith(t, key, "original"), address)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("well-formed but unrecoverable signature is false", func(t *testing.T) {
		_, address := newKey(t)
		// r = s = 0 is out of range for secp256k1 recovery
		sig := "0x" + strings.Repeat("0", 130)

		ok, err := Verify("message", sig, address)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("recovery id out of range is false", func(t *testing.T) {
		key, address := newKey(t)
		message := "bad v"

		digest := codec.PersonalMessageHash([]byte(message))
		sig, err := crypto.Sign(digest, key)
		require.NoError(t, err)
		sig[64] = 9 // neither 0/1 nor 27/28

		ok, err := Verify(message, hexutil.Encode(sig), address)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestVerify_MalformedInput(t *testing.T) {
	key, address := newKey(t)
	validSig := signWith(t, key, "hi")

	t.Run("short signature raises", func(t *testing.T) {
		_, err := Verify("hi", "0x1234", address)
		assert.ErrorIs(t, err, ErrInvalidSignatureFormat)
	})

	t.Run("missing prefix raises", func(t *testing.T) {
		_, err := Verify("hi", strings.Repeat("a", 132), address)
		assert.ErrorIs(t, err, ErrInvalidSignatureFormat)
	})

	t.Run("non-hex signature raises", func(t *testing.T) {
		sig := "0x" + strings.Repeat("z", 130)
		_, err := Verify("hi", sig, address)
		assert.ErrorIs(t, err, ErrInvalidSignatureFormat)
	})

	t.Run("invalid address raises", func(t *testing.T) {
		_, err := Verify("hi", validSig, "0x1234")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("empty message raises", func(t *testing.T) {
		_, err := Verify("   ", validSig, address)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})
}

func TestRecoverSigner(t *testing.T) {
	t.Run("recovers the signing address", func(t *testing.T) {
		key, address := newKey(t)
		message := "who signed this?"

		recovered, err := RecoverSigner(message, signWith(t, key, message))
		require.NoError(t, err)
		assert.Equal(t, address, strings.ToLower(recovered.Hex()))
	})

	t.Run("malformed signature raises", func(t *testing.T) {
		_, err := RecoverSigner("hi", "0xdead")
		assert.ErrorIs(t, err, ErrInvalidSignatureFormat)
	})

	t.Run("unrecoverable signature errors", func(t *testing.T) {
		_, err := RecoverSigner("hi", "0x"+strings.Repeat("0", 130))
		require.Error(t, err)
	})
}
