package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

// mockChatClient is a scriptable llm.ChatClient.
type mockChatClient struct {
	response string
	err      error
	delay    time.Duration
	calls    int32
}

func (m *mockChatClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.response, m.err
}

func (m *mockChatClient) callCount() int32 {
	return atomic.LoadInt32(&m.calls)
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
}

func serverHost(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	return u.Hostname()
}

func TestExtractScraperPath(t *testing.T) {
	ts := serveHTML(t, `
	<body>
		<h1 class="name">Butter Chicken</h1>
		<ul class="ings"><li>500g chicken</li><li>1cup yogurt</li></ul>
		<ol class="steps"><li>Marinate overnight.</li><li>Cook the chicken.</li></ol>
	</body>`)
	defer ts.Close()

	registry := NewRegistry()
	registry.Register(&SiteStrategy{
		Domain:               serverHost(t, ts),
		TitleSelectors:       []string{"h1.name"},
		IngredientSelectors:  []string{"ul.ings li"},
		InstructionSelectors: []string{"ol.steps li"},
	})

	chat := &mockChatClient{}
	e := NewExtractor(NewFetcher(5*time.Second), registry, chat, 0, true)

	res, err := e.Extract(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Source != SourceScraper {
		t.Errorf("Expected SourceScraper, got %s", res.Source)
	}
	if res.Recipe.Title != "Butter Chicken" {
		t.Errorf("Expected title 'Butter Chicken', got %q", res.Recipe.Title)
	}
	if len(res.Recipe.Ingredients) != 2 || res.Recipe.Ingredients[0] != "500 g chicken" {
		t.Errorf("Expected cleaned ingredients, got %v", res.Recipe.Ingredients)
	}
	if len(res.Recipe.Instructions) != 2 {
		t.Errorf("Expected 2 instruction steps, got %v", res.Recipe.Instructions)
	}
	if res.Recipe.OriginalURL != ts.URL {
		t.Errorf("Expected original URL to be set, got %q", res.Recipe.OriginalURL)
	}
	if chat.callCount() != 0 {
		t.Errorf("Expected no LLM call on the scraper path, got %d", chat.callCount())
	}
}

func TestExtractStrategyFailureIsTerminal(t *testing.T) {
	ts := serveHTML(t, "<body><p>totally not a recipe</p></body>")
	defer ts.Close()

	registry := NewRegistry()
	registry.Register(&SiteStrategy{
		Domain:              serverHost(t, ts),
		TitleSelectors:      []string{"h1"},
		IngredientSelectors: []string{"ul li"},
	})

	chat := &mockChatClient{response: `{"title":"x","ingredients":[],"instructions":[]}`}
	e := NewExtractor(NewFetcher(5*time.Second), registry, chat, 0, true)

	_, err := e.Extract(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("Expected an error, got nil")
	}
	if !IsKind(err, KindExtractionFailed) {
		t.Errorf("Expected KindExtractionFailed, got %v", err)
	}
	if chat.callCount() != 0 {
		t.Error("A matched strategy's failure must not fall back to the LLM")
	}
}

func TestExtractUnsupportedSiteFallsBackToLLM(t *testing.T) {
	ts := serveHTML(t, "<body><p>Some food blog rambling before the recipe.</p></body>")
	defer ts.Close()

	chat := &mockChatClient{
		response: `{"title": "Fallback Pie", "ingredients": ["2cups apples"], "instructions": ["Bake the pie"]}`,
	}
	// Heuristics disabled: goes straight from fetch+preprocess to the LLM.
	e := NewExtractor(NewFetcher(5*time.Second), NewRegistry(), chat, 0, false)

	res, err := e.Extract(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Source != SourceLLM {
		t.Errorf("Expected SourceLLM, got %s", res.Source)
	}
	if res.Recipe.Title != "Fallback Pie" {
		t.Errorf("Expected title 'Fallback Pie', got %q", res.Recipe.Title)
	}
	if len(res.Recipe.Ingredients) != 1 || res.Recipe.Ingredients[0] != "2 cups apples" {
		t.Errorf("Expected cleaned ingredients, got %v", res.Recipe.Ingredients)
	}
	if res.Recipe.OriginalURL != ts.URL {
		t.Errorf("Expected original URL to be set, got %q", res.Recipe.OriginalURL)
	}
	if chat.callCount() != 1 {
		t.Errorf("Expected exactly one LLM call, got %d", chat.callCount())
	}
}

func TestExtractHeuristicPath(t *testing.T) {
	ts := serveHTML(t, `
	<body>
		<h1>Fried Rice</h1>
		<ul class="recipe-ingredients"><li>2 cups rice</li></ul>
		<ol class="recipe-instructions"><li>Fry the rice.</li></ol>
	</body>`)
	defer ts.Close()

	chat := &mockChatClient{}
	e := NewExtractor(NewFetcher(5*time.Second), NewRegistry(), chat, 0, true)

	res, err := e.Extract(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Source != SourceHeuristic {
		t.Errorf("Expected SourceHeuristic, got %s", res.Source)
	}
	if chat.callCount() != 0 {
		t.Errorf("Expected no LLM call, got %d", chat.callCount())
	}
}

func TestExtractLLMTimeout(t *testing.T) {
	ts := serveHTML(t, "<body><p>slow model page</p></body>")
	defer ts.Close()

	chat := &mockChatClient{
		response: `{"title":"x","ingredients":[],"instructions":[]}`,
		delay:    5 * time.Second,
	}
	e := NewExtractor(NewFetcher(5*time.Second), NewRegistry(), chat, 100*time.Millisecond, false)

	start := time.Now()
	_, err := e.Extract(context.Background(), ts.URL)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected a timeout error, got nil")
	}
	if !IsKind(err, KindTimedOut) {
		t.Errorf("Expected KindTimedOut, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Timeout must not block past the deadline; waited %s", elapsed)
	}
}

func TestExtractFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	e := NewExtractor(NewFetcher(5*time.Second), NewRegistry(), &mockChatClient{}, 0, false)

	_, err := e.Extract(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("Expected an error, got nil")
	}
	if !IsKind(err, KindNetworkError) {
		t.Errorf("Expected KindNetworkError, got %v", err)
	}
}

func TestExtractUpstreamUnavailable(t *testing.T) {
	ts := serveHTML(t, "<body><p>page</p></body>")
	defer ts.Close()

	chat := &mockChatClient{err: context.DeadlineExceeded}
	e := NewExtractor(NewFetcher(5*time.Second), NewRegistry(), chat, 0, false)

	_, err := e.Extract(context.Background(), ts.URL)
	if !IsKind(err, KindUpstreamUnavailable) {
		t.Errorf("Expected KindUpstreamUnavailable, got %v", err)
	}
}
