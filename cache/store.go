package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/memotl"
)

// Store is the durable mapping from source text to translated text.
//
// Keys are matched byte for byte. Every Set and Import rewrites the full
// snapshot through the Persister while holding the write lock, so snapshot
// writes never interleave. Persistence failures are logged and otherwise
// ignored: the in-memory mapping stays authoritative for the session.
//
// Snapshots are JSON, which cannot carry invalid UTF-8 byte for byte. Entries
// whose key or value is not valid UTF-8 are served from memory for the
// session but left out of persisted and exported snapshots.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]string
	order     []string
	persister Persister
	logger    zerolog.Logger
	timeout   time.Duration
}

// Option is a functional option for configuring the Store.
type Option func(*Store)

// WithLogger sets the logger for persistence failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPersistTimeout bounds each Load and Save call (default: 5s).
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// New creates an empty store. A nil persister keeps the store in memory only.
func New(persister Persister, opts ...Option) *Store {
	s := &Store{
		entries:   make(map[string]string),
		persister: persister,
		logger:    zerolog.Nop(),
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store and loads the persisted snapshot into it.
// An absent or unreadable snapshot yields an empty store.
func Open(ctx context.Context, persister Persister, opts ...Option) *Store {
	s := New(persister, opts...)
	if persister == nil {
		return s
	}

	ctx, cancel := s.persistContext(ctx)
	defer cancel()

	entries, err := persister.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not load translation cache, starting empty")
		return s
	}

	s.replace(entries)
	s.logger.Info().Int("entries", len(s.order)).Msg("translation cache loaded")
	return s
}

// Get retrieves a translation. It never mutates the store.
func (s *Store) Get(text string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[text]
	return value, ok
}

// Has reports whether text has a cached translation (possibly empty).
func (s *Store) Has(text string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[text]
	return ok
}

// Set inserts or overwrites a translation and persists the whole mapping.
func (s *Store) Set(text, translation string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[text]; !ok {
		s.order = append(s.order, text)
	}
	s.entries[text] = translation

	if !persistable(Entry{Key: text, Value: translation}) {
		s.logger.Warn().
			Str("text", text).
			Msg("translation is not valid UTF-8, keeping it out of the snapshot")
	}
	s.persistLocked()
}

// Stats returns the number of entries.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Count: len(s.entries)}
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return s.Stats().Count
}

// Entries returns up to limit entries in insertion order. limit <= 0 returns all.
func (s *Store) Entries(limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}

	entries := make([]Entry, 0, n)
	for _, key := range s.order[:n] {
		entries = append(entries, Entry{Key: key, Value: s.entries[key]})
	}
	return entries
}

// Export returns the snapshot as a JSON object.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return MarshalSnapshot(s.snapshotLocked())
}

// Import replaces the whole mapping with the snapshot in data. Malformed
// input returns an *ImportError and leaves the store untouched.
func (s *Store) Import(data []byte) error {
	entries, err := UnmarshalSnapshot(data)
	if err != nil {
		return &ImportError{Cause: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked(entries)
	s.persistLocked()
	return nil
}

// ExportToFile writes the snapshot to path.
// The path is provided by the caller and is intentionally user-controlled.
func (s *Store) ExportToFile(path string) error {
	data, err := s.Export()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 - translations are not secret
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// ImportFromFile replaces the mapping with the snapshot stored at path.
// The path is provided by the caller and is intentionally user-controlled.
func (s *Store) ImportFromFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return s.Import(data)
}

// Clear removes all entries and persists the empty snapshot.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]string)
	s.order = nil
	s.persistLocked()
}

func (s *Store) replace(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(entries)
}

func (s *Store) replaceLocked(entries []Entry) {
	s.entries = make(map[string]string, len(entries))
	s.order = make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := s.entries[e.Key]; !ok {
			s.order = append(s.order, e.Key)
		}
		s.entries[e.Key] = e.Value
	}
}

// persistLocked saves the full mapping. Must be called with the write lock held.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}

	entries := s.snapshotLocked()

	ctx, cancel := s.persistContext(context.Background())
	defer cancel()

	if err := s.persister.Save(ctx, entries); err != nil {
		s.logger.Error().
			Err(&memotl.CacheError{Message: "saving snapshot", Cause: err}).
			Int("entries", len(entries)).
			Msg("translation cache not persisted, keeping it in memory")
	}
}

// snapshotLocked returns the persistable entries in insertion order.
// Must be called with the lock held.
func (s *Store) snapshotLocked() []Entry {
	entries := make([]Entry, 0, len(s.order))
	for _, key := range s.order {
		e := Entry{Key: key, Value: s.entries[key]}
		if persistable(e) {
			entries = append(entries, e)
		}
	}
	return entries
}

func persistable(e Entry) bool {
	return utf8.ValidString(e.Key) && utf8.ValidString(e.Value)
}

func (s *Store) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Verify Store implements memotl.TranslationCache
var _ memotl.TranslationCache = (*Store)(nil)
