// Package history persists the local record of signed messages: a single
// JSON collection, newest first, capped at MaxEntries. History is auxiliary
// data, so reads degrade to empty rather than failing.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	historyFileName = "history.json"
	filePerms       = 0600 // Owner read/write only

	// MaxEntries caps the stored collection; the oldest entries are evicted
	// first once the cap is exceeded.
	MaxEntries = 50
)

// SignedMessage is one past signature. Entries are never mutated after
// creation; the Signature field is always a 132-character 0x-prefixed hex
// string as returned by the provider.
type SignedMessage struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
}

// Store is the file-backed history collection. Every mutation is a
// whole-collection read-modify-write under the lock, so concurrent callers
// each observe a consistent snapshot (last writer wins per call).
type Store struct {
	mu       sync.Mutex
	filePath string
	log      zerolog.Logger

	// injectable for tests
	now   func() time.Time
	newID func() string
}

// NewStore creates a store persisting under dataDir.
func NewStore(dataDir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Store{
		filePath: filepath.Join(dataDir, historyFileName),
		log:      logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// Load returns the persisted collection, newest first. A non-empty
// filterAddress restricts the result to that address, compared
// case-insensitively. A missing or corrupt file yields an empty list.
func (s *Store) Load(filterAddress string) []SignedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterByAddress(s.read(), filterAddress)
}

// Save prepends a new entry with a fresh id and current timestamp, truncates
// to MaxEntries, and persists the whole collection.
func (s *Store) Save(message, signature, address string) (SignedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := SignedMessage{
		ID:        s.newID(),
		Message:   message,
		Signature: signature,
		Address:   address,
		Timestamp: s.now().UnixMilli(),
	}

	entries := append([]SignedMessage{entry}, s.read()...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	if err := s.write(entries); err != nil {
		return SignedMessage{}, err
	}
	return entry, nil
}

// DeleteOne removes the entry with the given id. A missing id is a no-op,
// not an error.
func (s *Store) DeleteOne(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.read()
	kept := entries[:0]
	for _, entry := range entries {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return s.write(kept)
}

// ClearAll removes every entry for filterAddress, or the whole collection
// when filterAddress is empty.
func (s *Store) ClearAll(filterAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filterAddress == "" {
		err := os.Remove(s.filePath)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		return nil
	}

	entries := s.read()
	kept := entries[:0]
	for _, entry := range entries {
		if !strings.EqualFold(entry.Address, filterAddress) {
			kept = append(kept, entry)
		}
	}
	return s.write(kept)
}

// read loads the collection from disk. Corruption degrades to an empty list;
// the history is non-critical and must never poison its callers.
func (s *Store) read() []SignedMessage {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("failed to read history file")
		}
		return nil
	}

	var entries []SignedMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn().Err(err).Msg("history file is corrupt, starting empty")
		return nil
	}
	return entries
}

// write persists the full collection atomically (temp file + rename) so a
// partial write cannot leave the slot unreadable.
func (s *Store) write(entries []SignedMessage) error {
	if entries == nil {
		entries = []SignedMessage{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, filePerms); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to save history file: %w", err)
	}
	return nil
}

func filterByAddress(entries []SignedMessage, filterAddress string) []SignedMessage {
	if filterAddress == "" {
		return entries
	}
	filtered := make([]SignedMessage, 0, len(entries))
	for _, entry := range entries {
		if strings.EqualFold(entry.Address, filterAddress) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}
