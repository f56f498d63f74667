// ABOUTME: Narrative chunk loader: origin fetch, dedupe, indefinite KV cache
// ABOUTME: The letter content is immutable; first occurrence wins on duplicates
package chunks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/harper/letterstream/internal/kv"
	"github.com/harper/letterstream/internal/util"
)

// Chunk is one ordered unit of the pre-authored letter
type Chunk struct {
	ChunkNumber int    `json:"chunkNumber"`
	Text        string `json:"text"`
	StyleHint   string `json:"styleHint,omitempty"`
}

// Loader fetches the letter chunks from an origin file server and caches the
// deduplicated set in the KV store indefinitely.
type Loader struct {
	kv         kv.Store
	originURL  string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewLoader creates a loader. An empty originURL disables fetching; Load then
// only serves whatever is already cached.
func NewLoader(store kv.Store, originURL string, maxRetries int, retryDelay time.Duration) *Loader {
	return &Loader{
		kv:         store,
		originURL:  originURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Load returns the deduplicated chunk collection, preferring the KV cache.
// Returns (nil, nil) when no origin is configured and nothing is cached.
func (l *Loader) Load(ctx context.Context) ([]Chunk, error) {
	data, err := l.kv.Get(kv.ChunksKey)
	if err != nil {
		log.Printf("chunks: cache read failed: %v", err)
	} else if data != nil {
		var cached []Chunk
		uerr := json.Unmarshal(data, &cached)
		if uerr == nil {
			return cached, nil
		}
		log.Printf("chunks: corrupt cached collection, refetching: %v", uerr)
	}

	if l.originURL == "" {
		return nil, nil
	}
	return l.Reload(ctx)
}

// Reload fetches from origin, dedupes, and overwrites the cached collection.
// Used at first load and by the ops CLI to pick up re-authored content.
func (l *Loader) Reload(ctx context.Context) ([]Chunk, error) {
	if l.originURL == "" {
		return nil, fmt.Errorf("no chunk origin configured")
	}

	raw, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	deduped := Dedupe(raw)

	data, err := json.Marshal(deduped)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chunk collection: %w", err)
	}
	if err := l.kv.Set(kv.ChunksKey, data); err != nil {
		// Degrade: serve the fetched set even if caching failed
		log.Printf("chunks: cache write failed: %v", err)
	}

	return deduped, nil
}

// fetch GETs the origin JSON array with retries. The origin is a static file
// server, so retrying is safe; the upstream LLM no-retry rule does not apply.
func (l *Loader) fetch(ctx context.Context) ([]Chunk, error) {
	var lastErr error

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(util.CalculateBackoff(l.retryDelay, attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.originURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build origin request: %w", err)
		}

		resp, err := l.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: read body: %w", attempt+1, err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("attempt %d: origin returned %d", attempt+1, resp.StatusCode)
			continue
		}

		var raw []Chunk
		if err := json.Unmarshal(body, &raw); err != nil {
			lastErr = fmt.Errorf("attempt %d: parse chunks: %w", attempt+1, err)
			continue
		}

		return raw, nil
	}

	return nil, fmt.Errorf("failed to fetch chunks after %d attempts: %w", l.maxRetries+1, lastErr)
}

// Dedupe drops duplicate chunk numbers (first occurrence wins, duplicates
// logged) and invalid entries, then orders the rest by chunk number.
func Dedupe(raw []Chunk) []Chunk {
	seen := make(map[int]bool, len(raw))
	out := make([]Chunk, 0, len(raw))
	for _, c := range raw {
		if c.ChunkNumber < 1 {
			log.Printf("chunks: dropping chunk with invalid number %d", c.ChunkNumber)
			continue
		}
		if seen[c.ChunkNumber] {
			log.Printf("chunks: dropping duplicate chunk %d", c.ChunkNumber)
			continue
		}
		seen[c.ChunkNumber] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkNumber < out[j].ChunkNumber })
	return out
}

// Find returns the chunk with the given number, or nil
func Find(collection []Chunk, number int) *Chunk {
	for i := range collection {
		if collection[i].ChunkNumber == number {
			return &collection[i]
		}
	}
	return nil
}
