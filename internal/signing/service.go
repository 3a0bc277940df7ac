// Package signing orchestrates the sign flow: validate inputs, ask the
// provider gateway for a personal-sign signature, and record the result in
// the history store.
package signing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yolodolo42/ethsign/internal/codec"
	"github.com/yolodolo42/ethsign/internal/history"
	"github.com/yolodolo42/ethsign/internal/provider"
)

// Caller-facing error categories. Provider failures are wrapped so the
// underlying message text is preserved.
var (
	ErrNoAccount          = errors.New("wallet not connected")
	ErrInvalidMessage     = errors.New("invalid message")
	ErrUserRejected       = errors.New("signature request rejected")
	ErrWalletDisconnected = errors.New("wallet disconnected")
)

// Service is stateless between calls; its only side effect is the history
// store write. Preventing re-entrant calls while one sign is pending is the
// caller's responsibility.
type Service struct {
	gateway *provider.Gateway
	store   *history.Store
	log     zerolog.Logger
}

// New wires a signing service to its gateway and history store.
func New(gateway *provider.Gateway, store *history.Store, logger zerolog.Logger) *Service {
	return &Service{gateway: gateway, store: store, log: logger}
}

// Sign validates message and account, obtains a signature from the provider,
// persists it, and returns the 132-character signature string. The history
// write of one invocation always records the signature produced by that same
// invocation's provider call.
func (s *Service) Sign(ctx context.Context, message, account string) (string, error) {
	if account == "" {
		return "", ErrNoAccount
	}
	if !codec.IsValidMessage(message) {
		return "", fmt.Errorf("%w: empty or exceeds %d characters", ErrInvalidMessage, codec.MaxMessageLength)
	}

	// Sign and record the trimmed form, so history entries verify against
	// what was actually signed.
	message = strings.TrimSpace(message)

	signature, err := s.gateway.SignPersonalMessage(ctx, message, account)
	if err != nil {
		return "", mapProviderError(err)
	}

	if _, err := s.store.Save(message, signature, account); err != nil {
		// The user still holds a valid signature; losing the history entry is
		// not fatal.
		s.log.Warn().Err(err).Msg("failed to record signature in history")
	}

	s.log.Info().Str("address", account).Int("message_len", len(message)).Msg("message signed")
	return signature, nil
}

// mapProviderError folds the EIP-1193 taxonomy into the service's error
// categories without losing the provider's message text.
func mapProviderError(err error) error {
	switch provider.Code(err) {
	case provider.CodeUserRejected:
		return fmt.Errorf("%w: %s", ErrUserRejected, provider.Normalize(err).Message)
	case provider.CodeDisconnected, provider.CodeChainDisconnected:
		return fmt.Errorf("%w: %s", ErrWalletDisconnected, provider.Normalize(err).Message)
	default:
		return fmt.Errorf("signing failed: %w", err)
	}
}
