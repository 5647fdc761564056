package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"recipe-extractor/internal/cache"
	"recipe-extractor/internal/config"
	"recipe-extractor/internal/database"
	"recipe-extractor/internal/extract"
	"recipe-extractor/internal/llm"
	"recipe-extractor/internal/mealplan"
	"recipe-extractor/internal/metrics"
	"recipe-extractor/internal/recipe"
	"recipe-extractor/internal/server"
	"recipe-extractor/internal/user"

	"github.com/joho/godotenv"
)

func main() {
	ctx := context.Background()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	chatClient, closeLLM, err := newChatClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	defer closeLLM()

	extractor := extract.NewExtractor(
		extract.NewFetcher(cfg.FetchTimeout),
		extract.NewRegistry(),
		chatClient,
		cfg.LLMTimeout,
		cfg.HeuristicsEnabled,
	)

	resultCache := cache.New(cfg.RedisAddr)
	defer resultCache.Close()

	metricsStore := metrics.NewStore(db.SQL)
	go pruneMetricsDaily(metricsStore)

	srv := server.New(
		cfg,
		extractor,
		user.NewRepository(db.SQL),
		recipe.NewRepository(db.SQL),
		mealplan.NewRepository(db.SQL),
		metricsStore,
		resultCache,
		db.SQL,
		chatClient,
	)

	log.Printf("Listening on :%s (LLM provider: %s)", cfg.Port, cfg.LLMProvider)
	if err := http.ListenAndServe(":"+cfg.Port, srv.Router()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// pruneMetricsDaily keeps the extraction_metrics table bounded.
func pruneMetricsDaily(store *metrics.Store) {
	for {
		if deleted, err := store.Cleanup(90); err != nil {
			log.Printf("Warning: failed to prune old metrics: %v", err)
		} else if deleted > 0 {
			log.Printf("Pruned %d old extraction metrics", deleted)
		}
		time.Sleep(24 * time.Hour)
	}
}

func newChatClient(ctx context.Context, cfg *config.Config) (llm.ChatClient, func(), error) {
	if cfg.LLMProvider == "gemini" {
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if c, ok := client.(llm.Closer); ok {
				c.Close()
			}
		}
		return client, closeFn, nil
	}
	return llm.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel), func() {}, nil
}
