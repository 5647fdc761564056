package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"recipe-extractor/internal/config"
	"recipe-extractor/internal/extract"
	"recipe-extractor/internal/metrics"
	"recipe-extractor/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Extractor runs the extraction pipeline for a URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (extract.Result, error)
}

// Bot wraps the Telegram API and the extraction pipeline. Any allowed user
// can send a recipe URL and get the extracted recipe back as a message.
type Bot struct {
	api          *tgbotapi.BotAPI
	extractor    Extractor
	recipeRepo   *recipe.Repository
	metricsStore *metrics.Store
	cfg          *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	extractor Extractor,
	recipeRepo *recipe.Repository,
	metricsStore *metrics.Store,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		extractor:    extractor,
		recipeRepo:   recipeRepo,
		metricsStore: metricsStore,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil {
		return
	}

	isAllowed := false
	for _, id := range b.cfg.TelegramAllowUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}

	if !isAllowed {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)

	if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Send me a recipe URL and I'll extract it for you.")
		b.api.Send(reply)
		return
	}

	b.handleExtractRequest(msg, text)
}

func (b *Bot) handleExtractRequest(msg *tgbotapi.Message, url string) {
	statusText := "🔎 *Extracting recipe...*"
	replyMsg := tgbotapi.NewMessage(msg.Chat.ID, statusText)
	replyMsg.ParseMode = "Markdown"
	sentMsg, err := b.api.Send(replyMsg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	res, err := b.extractor.Extract(ctx, url)
	b.recordMetric(res.Source, err, time.Since(start))

	var finalText string
	if err != nil {
		log.Printf("Error extracting recipe: %v", err)
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		finalText = fmt.Sprintf("❌ *Error extracting recipe:*\n```\n%v\n```", safeErr)
	} else {
		finalText = formatRecipeMarkdown(res.Recipe)
		if b.cfg.TelegramOwnerEmail != "" {
			go b.saveExtractedRecipe(res.Recipe)
		}
	}

	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, finalText)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

// saveExtractedRecipe stores the recipe under the configured owner account
// so it shows up in the web API's recipe list.
func (b *Bot) saveExtractedRecipe(rec extract.Recipe) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	saved, err := b.recipeRepo.Save(ctx, recipe.Recipe{
		OwnerEmail:   b.cfg.TelegramOwnerEmail,
		Title:        rec.Title,
		Ingredients:  rec.Ingredients,
		Instructions: rec.Instructions,
		OriginalURL:  rec.OriginalURL,
		ImageURL:     rec.ImageURL,
	})
	if err != nil {
		log.Printf("Background Error: failed to save extracted recipe '%s': %v", rec.Title, err)
		return
	}
	log.Printf("Background Success: saved recipe '%s' (id %d)", saved.Title, saved.ID)
}

func (b *Bot) recordMetric(source extract.Source, err error, latency time.Duration) {
	if b.metricsStore == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if kind, ok := extract.KindOf(err); ok {
			outcome = kind.String()
		}
	}
	m := metrics.ExtractionMetric{
		Source:    string(source),
		Model:     b.cfg.OllamaModel,
		Outcome:   outcome,
		LatencyMS: latency.Milliseconds(),
	}
	if b.cfg.LLMProvider == "gemini" {
		m.Model = b.cfg.GeminiModel
	}
	if err := b.metricsStore.Record(m); err != nil {
		log.Printf("Warning: failed to record extraction metric: %v", err)
	}
}

func formatRecipeMarkdown(rec extract.Recipe) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍳 *%s*\n\n", rec.Title))

	sb.WriteString("*Ingredients*\n")
	for _, ing := range rec.Ingredients {
		sb.WriteString(fmt.Sprintf("• %s\n", ing))
	}

	sb.WriteString("\n*Instructions*\n")
	for i, step := range rec.Instructions {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
	}

	if rec.OriginalURL != "" {
		sb.WriteString(fmt.Sprintf("\n%s\n", rec.OriginalURL))
	}
	return sb.String()
}
