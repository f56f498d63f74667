// ABOUTME: Charm KV-backed implementation of the Store interface
// ABOUTME: Cloud-synced durable storage with automatic SSH key auth
package kv

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/kv"
)

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// DefaultConfig returns default configuration for the charm backend
func DefaultConfig() *Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = "charm.2389.dev"
	}
	return &Config{
		Host:     host,
		DBName:   "letterstream",
		AutoSync: true,
	}
}

// CharmStore wraps charm KV behind the Store interface. The mutex guards the
// underlying badger handle, not session-level consistency; per-session writes
// stay last-writer-wins.
type CharmStore struct {
	kv     *kv.KV
	config *Config
	mu     sync.Mutex
}

// Open opens the charm KV database with the given config
func Open(cfg *Config) (*CharmStore, error) {
	// Charm reads the host from the environment when opening
	os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	s := &CharmStore{
		kv:     db,
		config: cfg,
	}

	// Pull remote data on startup
	if cfg.AutoSync {
		_ = db.Sync()
	}

	return s, nil
}

// Close closes the KV database
func (s *CharmStore) Close() error {
	if s.kv != nil {
		err := s.kv.Close()
		s.kv = nil
		return err
	}
	return nil
}

// syncIfEnabled syncs to cloud after writes
func (s *CharmStore) syncIfEnabled() {
	if s.config.AutoSync {
		_ = s.kv.Sync()
	}
}

// Get retrieves a value by key; a missing key yields (nil, nil)
func (s *CharmStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.kv.Get([]byte(key))
	if err != nil && strings.Contains(err.Error(), "not found") {
		return nil, nil
	}
	return data, err
}

// Set stores a value with the given key
func (s *CharmStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set([]byte(key), value); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	s.syncIfEnabled()
	return nil
}

// Delete removes a key
func (s *CharmStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete([]byte(key)); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	s.syncIfEnabled()
	return nil
}

// Keys returns all keys with the given prefix
func (s *CharmStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var result []string
	for _, key := range keys {
		keyStr := string(key)
		if strings.HasPrefix(keyStr, prefix) {
			result = append(result, keyStr)
		}
	}
	return result, nil
}

// Sync manually triggers a sync with the cloud
func (s *CharmStore) Sync() error {
	return s.kv.Sync()
}
