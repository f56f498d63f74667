// ABOUTME: Streaming proxy orchestrator: the request handler for /api/chat
// ABOUTME: Mode selection, sequential-chunk gate, upstream call, SSE transcode, side effects
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/letterstream/internal/audit"
	"github.com/harper/letterstream/internal/cache"
	"github.com/harper/letterstream/internal/chunks"
	"github.com/harper/letterstream/internal/config"
	"github.com/harper/letterstream/internal/kv"
	"github.com/harper/letterstream/internal/llm"
	"github.com/harper/letterstream/internal/memory"
	"github.com/harper/letterstream/internal/moderation"
	"github.com/harper/letterstream/internal/progress"
	"github.com/harper/letterstream/internal/prompts"
)

// Mode names used in usage records and logs
const (
	modeChat   = "chat"
	modeLetter = "letter"
	modeBody   = "body"
)

// Orchestrator mediates between clients and the upstream completion service.
// All per-session state lives in the KV-backed stores; the orchestrator owns
// only request-scoped variables.
type Orchestrator struct {
	cfg      *config.Config
	upstream *llm.Client // nil when no API key is configured
	cache    *cache.Cache
	memories *memory.Store
	tracker  *progress.Tracker
	loader   *chunks.Loader
	audit    *audit.Store // nil disables audit writes entirely
}

// New wires the orchestrator over a KV store and optional collaborators
func New(cfg *config.Config, upstream *llm.Client, store kv.Store, auditStore *audit.Store) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		upstream: upstream,
		cache:    cache.New(store),
		memories: memory.NewStore(store),
		tracker:  progress.NewTracker(store),
		loader:   chunks.NewLoader(store, cfg.ChunkOriginURL, cfg.OriginRetries, cfg.RetryDelay),
		audit:    auditStore,
	}
}

// Handler returns the HTTP surface: the chat endpoint plus liveness
func (o *Orchestrator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", o.handleChat)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return withCORS(mux)
}

// withCORS adds permissive cross-origin headers and answers preflights
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestState carries the per-request variables the orchestrator owns
type requestState struct {
	req         *chatRequest
	mode        string
	streaming   bool
	model       string
	messages    []openai.ChatCompletionMessage
	cacheKey    string
	requested   int // letter mode: the chunk being revealed
	totalChunks int
	start       time.Time
}

func (o *Orchestrator) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st := &requestState{req: req, start: time.Now()}
	ctx := r.Context()

	// Resolve the chunk collection: client-supplied first, cached second.
	// A loader failure degrades to chat mode rather than failing the request.
	collection, err := o.loader.Load(ctx)
	if err != nil {
		log.Printf("proxy: chunk load failed, continuing without letter content: %v", err)
	}
	resolved := req.LetterChunks
	if len(resolved) == 0 {
		resolved = collection
	}

	// Mode selection, first match wins
	letterMode := len(resolved) > 0
	bodyMode := !letterMode && req.Temperature != nil && req.MaxTokens != nil
	switch {
	case letterMode:
		st.mode = modeLetter
	case bodyMode:
		st.mode = modeBody
	default:
		st.mode = modeChat
	}

	// Streaming defaults on; body generation is always a single JSON body
	st.streaming = true
	if req.Stream != nil {
		st.streaming = *req.Stream
	}
	if bodyMode {
		st.streaming = false
	}

	st.model = o.cfg.ChatModel
	if bodyMode {
		st.model = o.cfg.BodyModel
	}

	// Sequential-chunk gate (letter mode only)
	var activeChunk *chunks.Chunk
	if letterMode {
		st.totalChunks = len(collection)
		if st.totalChunks == 0 {
			st.totalChunks = len(resolved)
		}

		prog, err := o.tracker.Load(req.SessionID)
		if err != nil {
			log.Printf("proxy: progress load failed for %s, treating as fresh: %v", req.SessionID, err)
			prog = nil
		}
		expected := progress.NextExpected(prog, st.totalChunks)

		st.requested = expected
		if len(req.LetterChunks) > 0 && req.LetterChunks[0].ChunkNumber >= 1 {
			st.requested = req.LetterChunks[0].ChunkNumber
		}
		if st.requested != expected {
			writeOrderViolation(w, expected, prog)
			return
		}

		activeChunk = chunks.Find(resolved, st.requested)
		if activeChunk == nil {
			activeChunk = &resolved[0]
		}
	}

	// Cache check: only non-streaming, non-letter completions are cacheable.
	// The key hashes the client-supplied messages, not the memory-augmented
	// list, so an identical request hits even after memory has grown.
	if !st.streaming && !letterMode {
		st.cacheKey = cache.Key(toCacheMessages(req.Messages), st.model)
		if entry := o.cache.Get(st.cacheKey); entry != nil {
			o.finishFromCache(w, st, entry)
			return
		}
	}

	st.messages = o.assembleMessages(st, activeChunk)

	if o.upstream == nil {
		http.Error(w, "upstream API key not configured", http.StatusInternalServerError)
		return
	}

	upReq := openai.ChatCompletionRequest{
		Model:    st.model,
		Messages: st.messages,
	}
	if req.Temperature != nil {
		upReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		upReq.MaxTokens = *req.MaxTokens
	}

	if st.streaming {
		o.serveStream(ctx, w, st, upReq)
	} else {
		o.serveOneshot(ctx, w, st, upReq)
	}
}

// assembleMessages builds the final upstream message list: system prompt,
// memory summary, recent turns, then the request's non-system messages.
func (o *Orchestrator) assembleMessages(st *requestState, activeChunk *chunks.Chunk) []openai.ChatCompletionMessage {
	req := st.req

	var systemPrompt string
	if st.mode == modeBody {
		// Body generation trusts the caller's own system message verbatim
		systemPrompt = req.systemMessage()
	} else {
		p := prompts.Render(req.ParentType, req.ChildName, req.ChildAge)
		hint := ""
		if activeChunk != nil {
			hint = activeChunk.StyleHint
		}
		p = prompts.WithStyleHint(p, hint)
		if activeChunk != nil && activeChunk.Text != "" {
			p += "\n\nToday's part of the letter. Deliver exactly this content, in your own warm voice, without adding new plot:\n" + activeChunk.Text
		}
		p += prompts.QuoteBlock(req.ChildrenQuotes, req.Quotes)
		systemPrompt = p
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+12)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	mem, err := o.memories.Load(req.SessionID)
	if err != nil {
		log.Printf("proxy: memory load failed for %s, continuing without context: %v", req.SessionID, err)
		mem = nil
	}
	if mem != nil && mem.Summary != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Conversation summary so far: " + mem.Summary,
		})
	}
	for _, m := range mem.LastN(10) {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	for _, m := range req.userMessages() {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// serveOneshot handles the non-streaming path: one upstream call, one JSON body
func (o *Orchestrator) serveOneshot(ctx context.Context, w http.ResponseWriter, st *requestState, upReq openai.ChatCompletionRequest) {
	resp, err := o.upstream.Complete(ctx, upReq)
	if err != nil {
		o.propagateUpstreamError(w, st, err)
		return
	}
	if len(resp.Choices) == 0 {
		http.Error(w, "upstream returned no choices", http.StatusBadGateway)
		o.logUsage(st, 0, 0, "failed", false)
		return
	}

	raw := resp.Choices[0].Message.Content
	reply, chunkProgress := o.commitCompletion(st, raw, resp.Usage.TotalTokens)
	o.logUsage(st, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, "success", false)

	writeJSON(w, http.StatusOK, map[string]any{
		"reply":          reply,
		"chunkProgress":  chunkProgress,
		"responseTimeMs": time.Since(st.start).Milliseconds(),
	})
}

// serveStream handles the streaming path: transcode upstream deltas into
// client events, then commit side effects on the terminal event.
func (o *Orchestrator) serveStream(ctx context.Context, w http.ResponseWriter, st *requestState, upReq openai.ChatCompletionRequest) {
	stream, err := o.upstream.Stream(ctx, upReq)
	if err != nil {
		o.propagateUpstreamError(w, st, err)
		return
	}
	defer stream.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	writeSSEHeaders(w)

	var raw strings.Builder
	var usage *openai.Usage
	suppressed := false

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// Client disconnected; do not commit side effects
				log.Printf("proxy: client gone mid-stream for %s", st.req.SessionID)
				return
			}
			log.Printf("proxy: upstream stream failed for %s: %v", st.req.SessionID, err)
			_ = writeEvent(w, flusher, doneEvent{Done: true, Reply: CleanReply(raw.String()), Error: "upstream stream failed"})
			o.logUsage(st, 0, 0, "failed", false)
			return
		}

		if resp.Usage != nil {
			usage = resp.Usage
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		raw.WriteString(delta)
		cleaned := CleanReply(raw.String())
		if suppressed || moderation.ContainsBlockedTerm(cleaned) {
			// Keep accumulating for the terminal verdict, but stop showing
			// the text: blocked terms never reach the client, even partially
			suppressed = true
			continue
		}
		if err := writeEvent(w, flusher, partialEvent{Chunk: delta, Reply: cleaned}); err != nil {
			// Closed connection: stop emitting and skip the side effects
			log.Printf("proxy: client write failed for %s: %v", st.req.SessionID, err)
			return
		}
	}

	totalTokens := 0
	promptTokens := 0
	completionTokens := 0
	if usage != nil {
		totalTokens = usage.TotalTokens
		promptTokens = usage.PromptTokens
		completionTokens = usage.CompletionTokens
	}

	reply, chunkProgress := o.commitCompletion(st, raw.String(), totalTokens)
	o.logUsage(st, promptTokens, completionTokens, "success", false)

	_ = writeEvent(w, flusher, doneEvent{Done: true, Reply: reply, ChunkProgress: chunkProgress})
}

// commitCompletion runs the ordered post-completion sequence shared by both
// paths: clean, moderate, cache write, memory update, progress advance. The
// returned reply is what the client may see; rejected text never leaves here.
func (o *Orchestrator) commitCompletion(st *requestState, raw string, totalTokens int) (string, *progressInfo) {
	reply := CleanReply(raw)

	verdict := moderation.Moderate(reply, contentTypeFor(st.mode))
	if !verdict.Approved {
		log.Printf("proxy: moderation rejected %s reply for %s: %s", st.mode, st.req.SessionID, verdict.Reason)
		o.logModeration(st, verdict)
		reply = verdict.ModeratedContent
	}

	// Cache write: non-streaming, non-letter, approved, with known token cost
	if verdict.Approved && st.cacheKey != "" && totalTokens > 0 {
		if err := o.cache.Set(st.cacheKey, reply, totalTokens, o.cfg.CacheTTLHours); err != nil {
			log.Printf("proxy: cache write failed: %v", err)
		}
	}

	o.updateMemory(st, reply)

	var chunkProgress *progressInfo
	if st.mode == modeLetter {
		if err := o.tracker.Save(st.req.SessionID, st.requested, st.totalChunks); err != nil {
			log.Printf("proxy: progress save failed for %s: %v", st.req.SessionID, err)
		}
		chunkProgress = &progressInfo{LastChunk: st.requested, TotalChunks: st.totalChunks}
	}

	return reply, chunkProgress
}

// updateMemory appends this turn to the session's rolling memory. Rejected
// (empty) replies contribute only the user's side of the turn.
func (o *Orchestrator) updateMemory(st *requestState, reply string) {
	newMessages := st.req.userMessages()
	if reply != "" {
		newMessages = append(newMessages, memory.Message{Role: "assistant", Content: reply})
	}
	if len(newMessages) == 0 {
		return
	}

	mem, err := o.memories.Load(st.req.SessionID)
	if err != nil {
		log.Printf("proxy: memory load failed for %s: %v", st.req.SessionID, err)
		mem = nil
	}
	if err := o.memories.Save(st.req.SessionID, memory.Update(mem, newMessages)); err != nil {
		log.Printf("proxy: memory save failed for %s: %v", st.req.SessionID, err)
	}
}

// finishFromCache answers a cacheable request from a hit without any
// upstream call. Memory still advances so the conversation stays coherent.
func (o *Orchestrator) finishFromCache(w http.ResponseWriter, st *requestState, entry *cache.Entry) {
	o.updateMemory(st, entry.Response)
	o.logUsage(st, 0, entry.TokensUsed, "success", true)

	writeJSON(w, http.StatusOK, map[string]any{
		"reply":          entry.Response,
		"chunkProgress":  nil,
		"responseTimeMs": time.Since(st.start).Milliseconds(),
	})
}

// propagateUpstreamError surfaces the upstream failure verbatim: same status,
// same body. No retry.
func (o *Orchestrator) propagateUpstreamError(w http.ResponseWriter, st *requestState, err error) {
	o.logUsage(st, 0, 0, "failed", false)

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(apiErr.HTTPStatusCode)
		fmt.Fprint(w, apiErr.Message)
		return
	}
	http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
}

// logUsage records the request outcome asynchronously; the audit store is
// optional and its failures never surface.
func (o *Orchestrator) logUsage(st *requestState, promptTokens, completionTokens int, status string, cached bool) {
	rec := audit.UsageRecord{
		SessionID:        st.req.SessionID,
		Mode:             st.mode,
		Model:            st.model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Status:           status,
		Cached:           cached,
		ResponseTimeMs:   time.Since(st.start).Milliseconds(),
	}
	go func() {
		if err := o.audit.RecordUsage(rec); err != nil {
			log.Printf("proxy: usage audit write failed: %v", err)
		}
	}()
}

// logModeration records a rejected verdict summary asynchronously
func (o *Orchestrator) logModeration(st *requestState, v moderation.Verdict) {
	rec := audit.ModerationRecord{
		SessionID:   st.req.SessionID,
		ContentType: string(contentTypeFor(st.mode)),
		Approved:    v.Approved,
		Reason:      v.Reason,
		Excerpt:     moderation.Excerpt(v.OriginalContent, 120),
	}
	go func() {
		if err := o.audit.RecordModeration(rec); err != nil {
			log.Printf("proxy: moderation audit write failed: %v", err)
		}
	}()
}

// contentTypeFor maps request modes onto moderation content types
func contentTypeFor(mode string) moderation.ContentType {
	switch mode {
	case modeLetter:
		return moderation.TypeLetter
	case modeBody:
		return moderation.TypeBody
	default:
		return moderation.TypeChat
	}
}

// writeOrderViolation rejects an out-of-order letter request before any
// upstream work happens. This is the system's core ordering guarantee.
func writeOrderViolation(w http.ResponseWriter, expected int, prog *progress.Progress) {
	body := map[string]any{
		"error":         fmt.Sprintf("letter chunks must be read in order; expected chunk %d", expected),
		"expectedChunk": expected,
	}
	if prog != nil {
		body["currentProgress"] = progressInfo{LastChunk: prog.LastChunk, TotalChunks: prog.TotalChunks}
	} else {
		body["currentProgress"] = nil
	}
	writeJSON(w, http.StatusBadRequest, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("proxy: response write failed: %v", err)
	}
}

// toCacheMessages converts request messages into the cache key shape
func toCacheMessages(msgs []memory.Message) []cache.Message {
	out := make([]cache.Message, len(msgs))
	for i, m := range msgs {
		out[i] = cache.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
