// Package credentials holds the OpenAI API key on behalf of the pipeline.
// No other component reads or writes the durable credential record directly.
package credentials

import (
	"fmt"
	"log"
	"sync"

	"github.com/traveltogether/planner/internal/kv"
)

// StorageKey is the durable record the credential lives under.
const StorageKey = "openai_api_key"

// Store caches the API key in memory and writes through to durable storage.
// An absent key is a valid state. The key format is never validated.
type Store struct {
	kv kv.Store

	mu  sync.RWMutex
	key string
	set bool
}

// New builds a Store seeded from durable storage. A storage read failure
// degrades to an empty cache rather than failing construction; the user can
// still enter a key for the current run.
func New(store kv.Store) (*Store, error) {
	if store == nil {
		return nil, fmt.Errorf("credentials: kv store is required")
	}
	s := &Store{kv: store}
	v, ok, err := store.Get(StorageKey)
	if err != nil {
		log.Printf("credentials: load from storage failed: %v", err)
		return s, nil
	}
	if ok && v != "" {
		s.key = v
		s.set = true
	}
	return s, nil
}

// Get returns the cached key and whether one is present.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, s.set
}

// Set updates the cache and writes through to durable storage.
func (s *Store) Set(key string) error {
	s.mu.Lock()
	s.key = key
	s.set = key != ""
	s.mu.Unlock()
	if err := s.kv.Set(StorageKey, key); err != nil {
		return fmt.Errorf("credentials: persist: %w", err)
	}
	return nil
}

// Clear removes the key from the cache and durable storage. Called when the
// provider rejects the credential, so the next attempt re-prompts.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.key = ""
	s.set = false
	s.mu.Unlock()
	if err := s.kv.Set(StorageKey, ""); err != nil {
		return fmt.Errorf("credentials: clear: %w", err)
	}
	return nil
}
