package extract

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"recipe-extractor/internal/llm"

	"github.com/PuerkitoBio/goquery"
)

// Recipe is the structured result of one extraction request. It lives only
// for the duration of the request; persistence is the caller's concern.
type Recipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	OriginalURL  string   `json:"original_url,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
}

// Source identifies which pipeline stage produced a result.
type Source string

const (
	SourceScraper   Source = "scraper"
	SourceHeuristic Source = "heuristic"
	SourceLLM       Source = "llm"
	SourceVideo     Source = "video"
)

const (
	// DefaultLLMTimeout bounds the wall-clock wait on a model call.
	DefaultLLMTimeout = 45 * time.Second
	// maxPromptChars caps how much page text is sent to the model.
	maxPromptChars = 4000
)

const systemPrompt = "You are a recipe extraction assistant. " +
	"You ONLY respond with valid JSON following the specified format."

const promptTemplate = `
Extract the recipe information from the content below.
YOU MUST RETURN ONLY VALID JSON in this exact format:
{
  "title": "Recipe Title",
  "ingredients": ["ingredient 1", "ingredient 2", ...],
  "instructions": ["step 1", "step 2", ...]
}

Ensure that:
- The ingredients list contains every section of ingredients (main, sauce, garnish, etc.).
- Do not include nutritional info.
- Do not include cooking steps in the ingredient list.
- The instructions are only step-by-step directions (no repeated ingredients).
- Format quantities properly (e.g., "1 cup flour", not "1cup flour").

Content:
%s
`

// Extractor runs the multi-strategy extraction pipeline: video links get
// their own metadata-to-LLM stage, everything else tries a site-specific
// scraper first, then heuristic DOM patterns, then the LLM fallback with
// JSON and free-text recovery. Collaborators are injected once at
// construction and shared across requests; the pipeline itself is
// stateless.
type Extractor struct {
	fetcher    *Fetcher
	registry   *Registry
	chat       llm.ChatClient
	llmTimeout time.Duration
	heuristics bool
}

// NewExtractor wires the pipeline. A zero llmTimeout selects
// DefaultLLMTimeout. heuristics toggles the advisory DOM extraction stage.
func NewExtractor(fetcher *Fetcher, registry *Registry, chat llm.ChatClient, llmTimeout time.Duration, heuristics bool) *Extractor {
	if llmTimeout <= 0 {
		llmTimeout = DefaultLLMTimeout
	}
	return &Extractor{
		fetcher:    fetcher,
		registry:   registry,
		chat:       chat,
		llmTimeout: llmTimeout,
		heuristics: heuristics,
	}
}

// Result pairs the extracted recipe with which stage produced it.
type Result struct {
	Recipe Recipe
	Source Source
}

// Extract resolves the extraction strategy for url and runs the pipeline.
// Fallback-triggering failures (unsupported site, nothing found
// heuristically) are handled internally; every returned error carries a
// terminal Kind.
func (e *Extractor) Extract(ctx context.Context, url string) (Result, error) {
	if isVideoURL(url) {
		rec, err := e.extractFromVideo(ctx, url)
		if err != nil {
			return Result{}, err
		}
		return Result{Recipe: rec, Source: SourceVideo}, nil
	}

	strategy, err := e.registry.Resolve(url)
	if err != nil && !IsKind(err, KindUnsupportedSite) {
		return Result{}, err
	}

	page, err := e.fetcher.Fetch(url)
	if err != nil {
		return Result{}, err
	}

	if strategy != nil {
		rec, err := e.runStrategy(strategy, url, page)
		if err != nil {
			// Strategy matched the site; its failure is terminal.
			return Result{}, err
		}
		return Result{Recipe: rec, Source: SourceScraper}, nil
	}

	if e.heuristics {
		if rec, err := ExtractFromDOM(page); err == nil {
			rec.OriginalURL = url
			rec.Instructions = FilterInstructions(rec.Instructions, rec.Ingredients)
			return Result{Recipe: rec, Source: SourceHeuristic}, nil
		} else if !IsKind(err, KindNoRecipeFound) {
			return Result{}, err
		}
	}

	rec, err := e.extractViaLLM(ctx, page)
	if err != nil {
		return Result{}, err
	}
	rec.OriginalURL = url
	return Result{Recipe: rec, Source: SourceLLM}, nil
}

func (e *Extractor) runStrategy(strategy *SiteStrategy, url, page string) (Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return Recipe{}, errKind(KindExtractionFailed, "scrape "+strategy.Domain, err)
	}

	scraped, err := strategy.Extract(doc)
	if err != nil {
		return Recipe{}, err
	}

	ingredients := CleanIngredients(scraped.Ingredients)
	instructions := FilterInstructions(SplitInstructions(scraped.RawInstructions), ingredients)
	return Recipe{
		Title:        scraped.Title,
		Ingredients:  ingredients,
		Instructions: instructions,
		OriginalURL:  url,
		ImageURL:     scraped.ImageURL,
	}, nil
}

// extractViaLLM preprocesses the page, queries the model under a bounded
// wait, and recovers structure from whatever comes back.
func (e *Extractor) extractViaLLM(ctx context.Context, page string) (Recipe, error) {
	text, err := PreprocessHTML(page)
	if err != nil {
		return Recipe{}, errKind(KindMalformedOutput, "preprocess", err)
	}
	text = truncateRunes(text, maxPromptChars)

	raw, err := e.chatWithTimeout(ctx, systemPrompt, fmt.Sprintf(promptTemplate, text))
	if err != nil {
		return Recipe{}, err
	}

	title, ingredients, instructions, err := ParseModelOutput(raw)
	if err != nil {
		return Recipe{}, err
	}

	ingredients = CleanIngredients(ingredients)
	return Recipe{
		Title:        title,
		Ingredients:  ingredients,
		Instructions: FilterInstructions(instructions, ingredients),
	}, nil
}

// truncateRunes cuts s to at most max bytes without splitting a UTF-8 rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

type chatResult struct {
	text string
	err  error
}

// chatWithTimeout dispatches the model call on its own goroutine and waits
// at most llmTimeout. On expiry the goroutine is abandoned (it may run to
// completion in the background; the buffered channel lets it exit) and
// KindTimedOut is returned immediately.
func (e *Extractor) chatWithTimeout(ctx context.Context, system, user string) (string, error) {
	ch := make(chan chatResult, 1)
	go func() {
		text, err := e.chat.Chat(ctx, system, user)
		ch <- chatResult{text: text, err: err}
	}()

	timer := time.NewTimer(e.llmTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", errKind(KindUpstreamUnavailable, "llm chat", res.err)
		}
		return res.text, nil
	case <-timer.C:
		return "", errKind(KindTimedOut, "llm chat",
			fmt.Errorf("no response within %s", e.llmTimeout))
	case <-ctx.Done():
		return "", errKind(KindTimedOut, "llm chat", ctx.Err())
	}
}
