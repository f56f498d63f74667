// ABOUTME: Content-addressed response cache over the durable KV store
// ABOUTME: Keys hash the upstream message list and model; entries expire by TTL
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/harper/letterstream/internal/kv"
)

// DefaultTTLHours is the entry lifetime used when the caller passes 0
const DefaultTTLHours = 24

// Message is the role/content pair hashed into the cache key. It mirrors the
// upstream chat-completion message shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Entry is a cached completion with its token cost
type Entry struct {
	Response   string    `json:"response"`
	TokensUsed int       `json:"tokensUsed"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Hits       int       `json:"hits"`
}

// Cache is a content-addressed store of completed non-streaming replies
type Cache struct {
	store kv.Store
	now   func() time.Time
}

// New creates a cache over the given store
func New(store kv.Store) *Cache {
	return &Cache{store: store, now: time.Now}
}

// Key derives the deterministic cache key for a message list and model:
// "llm:" + model + ":" + first 16 hex chars of sha256 over the JSON messages.
func Key(messages []Message, model string) string {
	data, err := json.Marshal(messages)
	if err != nil {
		// Marshal of []Message cannot fail; keep the key total anyway
		data = []byte(fmt.Sprintf("%v", messages))
	}
	sum := sha256.Sum256(data)
	return kv.CachePrefix + model + ":" + hex.EncodeToString(sum[:])[:16]
}

// Get returns the entry for key, or nil on miss, expiry, or store failure.
// A successful read bumps the hit counter asynchronously; the caller never
// waits on that write.
func (c *Cache) Get(key string) *Entry {
	data, err := c.store.Get(key)
	if err != nil {
		log.Printf("cache: read failed for %s: %v", key, err)
		return nil
	}
	if data == nil {
		return nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("cache: corrupt entry at %s: %v", key, err)
		return nil
	}

	if !entry.ExpiresAt.After(c.now()) {
		return nil
	}

	go c.bumpHits(key, entry)

	return &entry
}

// bumpHits rewrites the entry with an incremented hit counter. Races between
// concurrent hits can drop counts; the counter is advisory.
func (c *Cache) bumpHits(key string, entry Entry) {
	entry.Hits++
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.store.Set(key, data); err != nil {
		log.Printf("cache: hit counter write failed for %s: %v", key, err)
	}
}

// Set upserts an entry under key. A second write for the same key replaces
// the prior payload and restarts the TTL.
func (c *Cache) Set(key, response string, tokensUsed, ttlHours int) error {
	if ttlHours <= 0 {
		ttlHours = DefaultTTLHours
	}
	now := c.now()
	entry := Entry{
		Response:   response,
		TokensUsed: tokensUsed,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Duration(ttlHours) * time.Hour),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.store.Set(key, data); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Stats summarizes the cached entries for the ops CLI
type Stats struct {
	Entries   int
	TotalHits int
	Expired   int
}

// Stats scans all cache keys and aggregates entry counts
func (c *Cache) Stats() (Stats, error) {
	keys, err := c.store.Keys(kv.CachePrefix)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list cache keys: %w", err)
	}

	var s Stats
	now := c.now()
	for _, key := range keys {
		data, err := c.store.Get(key)
		if err != nil || data == nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		s.Entries++
		s.TotalHits += entry.Hits
		if !entry.ExpiresAt.After(now) {
			s.Expired++
		}
	}
	return s, nil
}
