// ABOUTME: Main entry point for the letterstream HTTP proxy server
// ABOUTME: Initializes the KV store, upstream client, audit log, and HTTP surface
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/harper/letterstream/internal/audit"
	"github.com/harper/letterstream/internal/config"
	"github.com/harper/letterstream/internal/kv"
	"github.com/harper/letterstream/internal/llm"
	"github.com/harper/letterstream/internal/proxy"
)

func main() {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Durable session state lives in the Charm KV store
	store, err := kv.Open(&kv.Config{
		Host:     cfg.CharmHost,
		DBName:   cfg.CharmDBName,
		AutoSync: cfg.AutoSync,
	})
	if err != nil {
		log.Fatalf("Failed to open KV store: %v", err)
	}
	defer store.Close()

	// Upstream client is optional: without a key the server still answers
	// cache hits and rejects the rest with a clear error
	var upstream *llm.Client
	if cfg.UpstreamAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - upstream completions will not work")
	} else {
		upstream, err = llm.NewClient(llm.Config{
			APIKey:  cfg.UpstreamAPIKey,
			BaseURL: cfg.UpstreamBaseURL,
			Timeout: cfg.UpstreamTimeout,
		})
		if err != nil {
			log.Fatalf("Failed to create upstream client: %v", err)
		}
	}

	// Optional SQLite audit trail
	var auditStore *audit.Store
	if cfg.AuditDBPath != "" {
		auditStore, err = audit.Open(cfg.AuditDBPath)
		if err != nil {
			log.Fatalf("Failed to open audit store: %v", err)
		}
		defer auditStore.Close()
	}

	orch := proxy.New(cfg, upstream, store, auditStore)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           orch.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("letterstream proxy listening on :%d (chat=%s body=%s)", cfg.Port, cfg.ChatModel, cfg.BodyModel)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
