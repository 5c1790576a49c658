// Command reveried runs the Reverie memory engine: the HTTP API, the
// background extraction queue and the nightly decay job.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reveriehq/reverie/internal/config"
	"github.com/reveriehq/reverie/internal/engine"
	"github.com/reveriehq/reverie/internal/extract"
	"github.com/reveriehq/reverie/internal/llm"
	"github.com/reveriehq/reverie/internal/server"
	"github.com/reveriehq/reverie/internal/storage"
	"github.com/reveriehq/reverie/internal/storage/postgres"
	"github.com/reveriehq/reverie/internal/storage/sqlite"
)

func main() {
	// Optional .env for local development; a missing file is fine.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	generator, err := llm.NewTextGenerator(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to create text generator: %v", err)
	}
	embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to create embedding generator: %v", err)
	}
	log.Printf("LLM provider: %s (extraction: %s, embeddings: %s)",
		cfg.LLM.Provider, generator.GetModel(), embedder.GetModel())

	store, err := openStore(cfg, embedder)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	eng := engine.New(store, extract.NewExtractor(generator), embedder, cfg.Engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, wsHub, err := server.Start(ctx, cfg, eng)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Push completed extractions to operational websocket clients.
	eng.OnExtractionComplete(func(ev engine.ExtractionEvent) {
		wsHub.Broadcast(map[string]interface{}{
			"event":       "extraction_complete",
			"task_id":     ev.TaskID,
			"user_id":     ev.UserID,
			"candidates":  ev.Candidates,
			"stored":      ev.Stored,
			"duration_ms": ev.DurationMs,
		})
	})

	eng.Start()
	log.Printf("Reverie running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	eng.Shutdown()
	cancel()
	time.Sleep(1 * time.Second) // Give in-flight connections time to close
}

// openStore picks the storage backend from config.
func openStore(cfg *config.Config, embedder engine.Embedder) (storage.MemoryStore, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		return postgres.NewMemoryStore(cfg.Storage.PostgresDSN, embedder)
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, err
		}
		return sqlite.NewMemoryStore(filepath.Join(cfg.Storage.DataPath, "reverie.db"), embedder)
	}
}
