// ABOUTME: Upstream chat-completion client over go-openai
// ABOUTME: Oneshot and streaming calls; upstream errors propagate, no retries
package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps the OpenAI-compatible upstream provider. Unlike origin
// fetches, upstream calls are never retried: failures propagate to the
// caller so the HTTP status and body can be surfaced verbatim.
type Client struct {
	api     *openai.Client
	timeout time.Duration
}

// Config holds upstream connection settings
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewClient creates an upstream client. BaseURL may point at any
// OpenAI-compatible provider; empty keeps the default endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("upstream API key is required")
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		timeout: timeout,
	}, nil
}

// Complete issues a non-streaming chat completion bounded by the configured timeout
func (c *Client) Complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req.Stream = false
	return c.api.CreateChatCompletion(ctx, req)
}

// Stream opens a streaming chat completion. The returned stream is a pull
// iterator: each Recv parses one upstream SSE record. No timeout is applied
// here; cancellation rides the request context so a client disconnect stops
// the upstream read without cutting long letters short.
func (c *Client) Stream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	req.Stream = true
	if req.StreamOptions == nil {
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return c.api.CreateChatCompletionStream(ctx, req)
}
