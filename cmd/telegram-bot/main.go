package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-extractor/internal/config"
	"recipe-extractor/internal/database"
	"recipe-extractor/internal/extract"
	"recipe-extractor/internal/llm"
	"recipe-extractor/internal/metrics"
	"recipe-extractor/internal/recipe"
	"recipe-extractor/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramWebhookURL == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL must be set")
	}

	ctx := context.Background()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	var chatClient llm.ChatClient
	if cfg.LLMProvider == "gemini" {
		chatClient, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
	} else {
		chatClient = llm.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel)
	}
	if c, ok := chatClient.(llm.Closer); ok {
		defer c.Close()
	}

	extractor := extract.NewExtractor(
		extract.NewFetcher(cfg.FetchTimeout),
		extract.NewRegistry(),
		chatClient,
		cfg.LLMTimeout,
		cfg.HeuristicsEnabled,
	)

	bot, err := telegram.NewBot(cfg, extractor, recipe.NewRepository(db.SQL), metrics.NewStore(db.SQL))
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
