// ABOUTME: Request body parsing and validation for the chat endpoint
// ABOUTME: Rejects malformed JSON, wrong-typed lists, and invalid messages
package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/harper/letterstream/internal/chunks"
	"github.com/harper/letterstream/internal/memory"
	"github.com/harper/letterstream/internal/prompts"
)

// chatRequest is the client-facing request body
type chatRequest struct {
	Messages       []memory.Message     `json:"messages"`
	LetterChunks   []chunks.Chunk       `json:"letterChunks"`
	Quotes         []string             `json:"quotes"`
	ChildrenQuotes []prompts.ChildQuote `json:"childrenQuotes"`
	SessionID      string               `json:"sessionId"`
	Temperature    *float32             `json:"temperature"`
	MaxTokens      *int                 `json:"max_tokens"`
	ParentType     string               `json:"parentType"`
	ChildName      string               `json:"childName"`
	ChildAge       string               `json:"childAge"`
	Stream         *bool                `json:"stream"`
}

// DefaultSessionID is used when the client supplies none
const DefaultSessionID = "default"

var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// parseChatRequest decodes and validates the request body. The returned error
// is safe to show to the client.
func parseChatRequest(r *http.Request) (*chatRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body")
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			switch typeErr.Field {
			case "messages", "quotes", "letterChunks", "childrenQuotes":
				return nil, fmt.Errorf("%s must be an array", typeErr.Field)
			}
			return nil, fmt.Errorf("invalid type for field %s", typeErr.Field)
		}
		return nil, fmt.Errorf("invalid JSON body")
	}

	for i, m := range req.Messages {
		if !validRoles[m.Role] {
			return nil, fmt.Errorf("message %d has invalid role %q", i, m.Role)
		}
		if m.Content == "" {
			return nil, fmt.Errorf("message %d has empty content", i)
		}
	}

	if req.SessionID == "" {
		req.SessionID = DefaultSessionID
	}

	return &req, nil
}

// userMessages returns the request's non-system messages in order
func (r *chatRequest) userMessages() []memory.Message {
	var out []memory.Message
	for _, m := range r.Messages {
		if m.Role == "system" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// systemMessage returns the content of the first system-role message, if any
func (r *chatRequest) systemMessage() string {
	for _, m := range r.Messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}
