package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/fundfaq/fundfaq/internal/agents/classifier"
	"github.com/fundfaq/fundfaq/internal/agents/generator"
	"github.com/fundfaq/fundfaq/internal/agents/retriever"
	"github.com/fundfaq/fundfaq/internal/catalog"
	catneo4j "github.com/fundfaq/fundfaq/internal/catalog/neo4j"
	"github.com/fundfaq/fundfaq/internal/config"
	"github.com/fundfaq/fundfaq/internal/docs"
	"github.com/fundfaq/fundfaq/internal/embedding"
	"github.com/fundfaq/fundfaq/internal/embedding/gemini"
	"github.com/fundfaq/fundfaq/internal/index"
	"github.com/fundfaq/fundfaq/internal/ingest"
	"github.com/fundfaq/fundfaq/internal/llm"
	"github.com/fundfaq/fundfaq/internal/llm/openai"
	"github.com/fundfaq/fundfaq/internal/observability"
	"github.com/fundfaq/fundfaq/internal/pipeline"
	"github.com/fundfaq/fundfaq/internal/server"
	ftemporal "github.com/fundfaq/fundfaq/internal/temporal"
	"github.com/fundfaq/fundfaq/internal/vector/qdrant"
)

func main() {
	var (
		configPath  string
		reset       bool
		useWorkflow bool
	)

	rootCmd := &cobra.Command{
		Use:   "fundfaq",
		Short: "Mutual fund FAQ assistant grounded in official documents",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/fundfaq.yaml", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the FAQ API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Download, chunk, embed, and index the configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(configPath, reset, useWorkflow)
		},
	}
	ingestCmd.Flags().BoolVar(&reset, "reset", false, "Drop and recreate the collection before indexing")
	ingestCmd.Flags().BoolVar(&useWorkflow, "workflow", false, "Run ingestion through Temporal instead of in-process")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(configPath)
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-10s %s\n", name, url)
			}
			fmt.Println("  custom     (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println("  none       (keyword gate and extractive fallbacks only)")
			fmt.Println()
			fmt.Println("Configure in fundfaq.yaml or via environment:")
			fmt.Println("  FUNDFAQ_LLM_PROVIDER=groq")
			fmt.Println("  FUNDFAQ_LLM_API_KEY=gsk_...")
			fmt.Println("  FUNDFAQ_LLM_MODEL=llama-3.3-70b-versatile")
		},
	}

	rootCmd.AddCommand(serveCmd, ingestCmd, statsCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles everything the commands share.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider llm.Provider
	embedder embedding.Embedder
	repo     *qdrant.QdrantRepository
	store    *index.Store
	catalog  catalog.Repository
	audit    *observability.AuditLogger
	metrics  *observability.FAQMetrics
	ingest   *ingest.Service
	tracing  *observability.TracerProvider
}

func buildApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = &config.Config{}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	tracing, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  "fundfaq",
		Environment:  cfg.Tracing.Environment,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		logger.Warn("running without LLM provider, using deterministic fallbacks")
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	repo, err := qdrant.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		return nil, fmt.Errorf("connect vector store: %w", err)
	}
	if err := repo.EnsureCollection(ctx, cfg.Vector.Dimension); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	store := index.NewStore(embedder, repo, logger)
	if err := store.MarkReadyIfPopulated(ctx); err != nil {
		logger.Warn("could not check existing index", "error", err)
	}

	cat, err := buildCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	audit, err := observability.NewAuditLogger(&observability.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		OutputPath: cfg.Audit.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init audit log: %w", err)
	}

	metrics := observability.Metrics()

	preparer := docs.NewPreparer(cfg.Ingest.ChunkSize, cfg.Ingest.Overlap, logger)
	ingestSvc := ingest.NewService(preparer, store, cat, audit, metrics, cfg.Ingest.Sources, cfg.Vector.Dimension, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		embedder: embedder,
		repo:     repo,
		store:    store,
		catalog:  cat,
		audit:    audit,
		metrics:  metrics,
		ingest:   ingestSvc,
		tracing:  tracing,
	}, nil
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	factory := llm.NewFactory()
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})
	for _, p := range []struct{ name, url string }{
		{"groq", llm.KnownProviders["groq"]},
		{"ollama", llm.KnownProviders["ollama"]},
		{"together", llm.KnownProviders["together"]},
		{"deepseek", llm.KnownProviders["deepseek"]},
		{"custom", ""},
	} {
		p := p
		factory.Register(p.name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = p.url
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel), nil
		})
	}

	provider, err := factory.Create(llm.ProviderConfig{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	// Free-tier quotas are tight; keep classification and generation under them.
	return llm.WithRateLimit(provider, llm.DefaultRateLimitConfig()), nil
}

func buildEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	if cfg.Embedding.Provider == "gemini" || cfg.Embedding.Provider == "" {
		return gemini.New(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL), nil
	}

	// any OpenAI-compatible provider can serve embeddings too
	base := cfg.Embedding.BaseURL
	if base == "" {
		base = llm.KnownProviders[cfg.Embedding.Provider]
	}
	p := openai.New(cfg.Embedding.APIKey, "", base, cfg.Embedding.Model)
	return embedding.NewProviderEmbedder(llm.WithRateLimit(p, llm.DefaultRateLimitConfig())), nil
}

func buildCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.Repository, error) {
	if cfg.Catalog.URI == "" {
		return catalog.NoopRepository{}, nil
	}
	cat, err := catneo4j.NewNeo4j(ctx, cfg.Catalog.URI, cfg.Catalog.Username, cfg.Catalog.Password)
	if err != nil {
		// catalog is provenance only, not worth failing startup over
		logger.Warn("catalog unavailable, continuing without provenance", "error", err)
		return catalog.NoopRepository{}, nil
	}
	return cat, nil
}

func runServe(configPath string) error {
	ctx := context.Background()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}

	cls := classifier.New(a.provider, a.cfg.Classify.OpinionKeywords, a.logger)
	retr := retriever.New(a.store, a.cfg.Retrieval.TopK, a.logger)
	gen := generator.New(a.provider, a.logger)
	orch := pipeline.New(cls, retr, gen, a.logger)

	api := server.NewAPIServer(orch, a.ingest, a.store, a.catalog, a.metrics, a.audit,
		a.cfg.Vector.Collection, a.repo.Addr(), a.logger)
	httpServer := api.Server(a.cfg.Server.Addr)

	graceful := server.NewGracefulServer(
		&server.HealthConfig{Version: "0.1.0"},
		&server.ShutdownConfig{Logger: a.logger},
	)
	graceful.Health.SetReadiness(func() bool {
		return a.store.State() == index.StateReady
	})
	graceful.Health.RegisterCheck("vector-store", server.VectorStoreHealthChecker(func(ctx context.Context) error {
		_, err := a.repo.Count(ctx)
		return err
	}))

	graceful.RegisterHook("api-server", 10, func(ctx context.Context) error {
		return httpServer.Shutdown(ctx)
	})
	graceful.RegisterHook("tracing", 80, a.tracing.Shutdown)
	graceful.RegisterHook("vector-store", 90, func(ctx context.Context) error {
		return a.repo.Close()
	})
	graceful.RegisterHook("catalog", 90, a.catalog.Close)
	graceful.RegisterHook("audit-log", 95, func(ctx context.Context) error {
		return a.audit.Close()
	})

	graceful.Start(a.cfg.Server.HealthAddr)

	a.logger.Info("serving",
		"addr", a.cfg.Server.Addr,
		"health_addr", a.cfg.Server.HealthAddr,
		"collection", a.cfg.Vector.Collection,
		"index_state", a.store.State().String(),
	)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("api server failed", "error", err)
			graceful.Shutdown.Shutdown()
		}
	}()

	graceful.Wait()
	return nil
}

func runIngest(configPath string, reset, useWorkflow bool) error {
	ctx := context.Background()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.repo.Close()
	defer a.catalog.Close(ctx)
	defer a.audit.Close()

	if len(a.cfg.Ingest.Sources) == 0 {
		return fmt.Errorf("no ingest sources configured")
	}

	if useWorkflow {
		return runIngestWorkflow(ctx, a, reset)
	}

	report, err := a.ingest.Run(ctx, ingest.Options{Reset: reset})
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func runIngestWorkflow(ctx context.Context, a *app, reset bool) error {
	c, err := client.Dial(client.Options{
		HostPort:  a.cfg.Temporal.Host,
		Namespace: a.cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("connect temporal: %w", err)
	}
	defer c.Close()

	taskQueue := a.cfg.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = ftemporal.TaskQueue
	}

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		TaskQueue: taskQueue,
	}, ftemporal.IngestionWorkflow, ftemporal.IngestionInput{
		Sources:   a.cfg.Ingest.Sources,
		Reset:     reset,
		Dimension: a.cfg.Vector.Dimension,
	})
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	var output ftemporal.IngestionOutput
	if err := run.Get(ctx, &output); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}

	fmt.Printf("Ingestion complete: %d chunks from %d sources\n", output.Chunks, output.Sources)
	for _, url := range output.FailedSources {
		fmt.Printf("  failed: %s\n", url)
	}
	return nil
}

func printReport(report *ingest.Report) {
	fmt.Printf("Ingestion complete: %d chunks from %d sources in %v\n",
		report.Chunks, report.Sources, report.Duration.Round(10*time.Millisecond))
	for _, url := range report.FailedSources {
		fmt.Printf("  failed: %s\n", url)
	}
}

func runStats(configPath string) error {
	ctx := context.Background()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.repo.Close()

	stats, err := a.store.Stats(ctx, a.cfg.Vector.Collection, a.repo.Addr())
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	data, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(data))

	sources, err := a.catalog.ListSources(ctx)
	if err == nil && len(sources) > 0 {
		fmt.Println("\nIngested sources:")
		for _, s := range sources {
			fmt.Printf("  %s (%d pages, %d chunks, %s)\n",
				s.URL, s.Pages, s.Chunks, s.IngestedAt.Format("2006-01-02"))
		}
	}
	return nil
}
