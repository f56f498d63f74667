// ABOUTME: Server-sent event framing for the client-facing stream
// ABOUTME: Each event is one JSON payload in a data: line, flushed immediately
package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// partialEvent carries one delta and the cumulative cleaned reply so far
type partialEvent struct {
	Chunk string `json:"chunk"`
	Reply string `json:"reply"`
}

// doneEvent is the single terminal event of a stream
type doneEvent struct {
	Done          bool          `json:"done"`
	Reply         string        `json:"reply"`
	ChunkProgress *progressInfo `json:"chunkProgress"`
	Error         string        `json:"error,omitempty"`
}

// progressInfo is the chunk cursor shape shared by responses and errors
type progressInfo struct {
	LastChunk   int `json:"lastChunk"`
	TotalChunks int `json:"totalChunks"`
}

// writeSSEHeaders prepares the response for event streaming
func writeSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

// writeEvent marshals v into a data: frame and flushes it. A write error
// means the client is gone; callers stop emitting.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
