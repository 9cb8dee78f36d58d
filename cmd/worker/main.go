package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fundfaq/fundfaq/internal/catalog"
	catneo4j "github.com/fundfaq/fundfaq/internal/catalog/neo4j"
	"github.com/fundfaq/fundfaq/internal/config"
	"github.com/fundfaq/fundfaq/internal/docs"
	"github.com/fundfaq/fundfaq/internal/embedding"
	"github.com/fundfaq/fundfaq/internal/embedding/gemini"
	"github.com/fundfaq/fundfaq/internal/index"
	"github.com/fundfaq/fundfaq/internal/llm"
	"github.com/fundfaq/fundfaq/internal/llm/openai"
	temporalmod "github.com/fundfaq/fundfaq/internal/temporal"
	"github.com/fundfaq/fundfaq/internal/vector/qdrant"

	temporalclient "go.temporal.io/sdk/client"
)

func main() {
	configPath := "configs/fundfaq.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	var embedder embedding.Embedder
	if cfg.Embedding.Provider == "gemini" || cfg.Embedding.Provider == "" {
		embedder = gemini.New(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	} else {
		base := cfg.Embedding.BaseURL
		if base == "" {
			base = llm.KnownProviders[cfg.Embedding.Provider]
		}
		p := openai.New(cfg.Embedding.APIKey, "", base, cfg.Embedding.Model)
		embedder = embedding.NewProviderEmbedder(llm.WithRateLimit(p, llm.DefaultRateLimitConfig()))
	}

	repo, err := qdrant.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		log.Fatalf("vector store: %v", err)
	}
	defer repo.Close()
	if err := repo.EnsureCollection(ctx, cfg.Vector.Dimension); err != nil {
		log.Fatalf("ensure collection: %v", err)
	}

	var cat catalog.Repository = catalog.NoopRepository{}
	if cfg.Catalog.URI != "" {
		c, err := catneo4j.NewNeo4j(ctx, cfg.Catalog.URI, cfg.Catalog.Username, cfg.Catalog.Password)
		if err != nil {
			logger.Warn("catalog unavailable, continuing without provenance", "error", err)
		} else {
			cat = c
			defer cat.Close(ctx)
		}
	}

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Preparer: docs.NewPreparer(cfg.Ingest.ChunkSize, cfg.Ingest.Overlap, logger),
		Store:    index.NewStore(embedder, repo, logger),
		Catalog:  cat,
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	fmt.Println("Worker stopped")
}
