package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recipe-extractor/internal/config"
	"recipe-extractor/internal/database"
	"recipe-extractor/internal/extract"
	"recipe-extractor/internal/mealplan"
	"recipe-extractor/internal/metrics"
	"recipe-extractor/internal/recipe"
	"recipe-extractor/internal/server"
	"recipe-extractor/internal/user"
)

// stubExtractor returns a canned result or error without touching the network.
type stubExtractor struct {
	result extract.Result
	err    error
}

func (s *stubExtractor) Extract(ctx context.Context, url string) (extract.Result, error) {
	return s.result, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8000",
		JWTSecret:         "test-secret",
		AccessTokenExpiry: time.Hour,
		OllamaModel:       "test-model",
		LLMProvider:       "ollama",
		AllowedOrigin:     "*",
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
	}
}

func newTestServer(t *testing.T, extractor server.RecipeExtractor) http.Handler {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := server.New(
		testConfig(),
		extractor,
		user.NewRepository(db.SQL),
		recipe.NewRepository(db.SQL),
		mealplan.NewRepository(db.SQL),
		metrics.NewStore(db.SQL),
		nil,
		db.SQL,
		nil,
	)
	return srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func signupAndLogin(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := doJSON(t, h, "POST", "/signup", "", map[string]string{
		"email": email, "name": "Test User", "password": "hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected signup to return 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "POST", "/token", "", map[string]string{
		"email": email, "password": "hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected login to return 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode token response: %v", err)
	}
	if resp.TokenType != "bearer" || resp.AccessToken == "" {
		t.Fatalf("Expected a bearer token, got %+v", resp)
	}
	return resp.AccessToken
}

func TestSignupDuplicateEmail(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})

	body := map[string]string{"email": "alice@example.com", "name": "Alice", "password": "pw"}
	if rec := doJSON(t, h, "POST", "/signup", "", body); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	if rec := doJSON(t, h, "POST", "/signup", "", body); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 on duplicate signup, got %d", rec.Code)
	}
}

func TestTokenWrongPassword(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})
	signupAndLogin(t, h, "alice@example.com")

	rec := doJSON(t, h, "POST", "/token", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 on wrong password, got %d", rec.Code)
	}
}

func TestTokenAcceptsFormEncoding(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})
	signupAndLogin(t, h, "alice@example.com")

	form := "username=alice%40example.com&password=hunter2"
	req := httptest.NewRequest("POST", "/token", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for form-encoded login, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})

	cases := []struct{ method, path string }{
		{"POST", "/save-recipe"},
		{"GET", "/recipes"},
		{"DELETE", "/recipes/1"},
		{"POST", "/meal-plan"},
		{"GET", "/meal-plan"},
		{"DELETE", "/meal-plan/1"},
	}
	for _, c := range cases {
		rec := doJSON(t, h, c.method, c.path, "", map[string]string{})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without a token, got %d", c.method, c.path, rec.Code)
		}
	}
}

func TestExtractRecipeSuccess(t *testing.T) {
	h := newTestServer(t, &stubExtractor{
		result: extract.Result{
			Recipe: extract.Recipe{
				Title:        "Pancakes",
				Ingredients:  []string{"2 cups flour"},
				Instructions: []string{"Mix and fry"},
				OriginalURL:  "https://example.com/pancakes",
			},
			Source: extract.SourceScraper,
		},
	})

	rec := doJSON(t, h, "POST", "/extract-recipe", "", map[string]string{
		"url": "https://example.com/pancakes",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got extract.Recipe
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Title != "Pancakes" || len(got.Ingredients) != 1 {
		t.Errorf("Unexpected recipe in response: %+v", got)
	}
}

func TestExtractRecipeMissingURL(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})
	rec := doJSON(t, h, "POST", "/extract-recipe", "", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a url, got %d", rec.Code)
	}
}

func TestExtractRecipeErrorMapping(t *testing.T) {
	cases := []struct {
		kind extract.Kind
		want int
	}{
		{extract.KindNetworkError, http.StatusBadRequest},
		{extract.KindExtractionFailed, http.StatusBadRequest},
		{extract.KindTimedOut, http.StatusGatewayTimeout},
		{extract.KindUpstreamUnavailable, http.StatusBadGateway},
		{extract.KindMalformedOutput, http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.kind.String(), func(t *testing.T) {
			h := newTestServer(t, &stubExtractor{
				err: &extract.Error{Kind: c.kind, Op: "extract"},
			})
			rec := doJSON(t, h, "POST", "/extract-recipe", "", map[string]string{
				"url": "https://example.com/x",
			})
			if rec.Code != c.want {
				t.Errorf("Expected status %d, got %d: %s", c.want, rec.Code, rec.Body.String())
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if body["detail"] == "" {
				t.Error("Expected a detail message in the error body")
			}
		})
	}
}

func TestSaveListDeleteRecipeFlow(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})
	token := signupAndLogin(t, h, "alice@example.com")

	rec := doJSON(t, h, "POST", "/save-recipe", token, map[string]any{
		"title":        "Pancakes",
		"ingredients":  []string{"2 cups flour", "1 cup milk"},
		"instructions": []string{"Mix", "Fry"},
		"original_url": "https://example.com/pancakes",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var saved recipe.Recipe
	if err := json.NewDecoder(rec.Body).Decode(&saved); err != nil {
		t.Fatalf("Failed to decode saved recipe: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("Expected a non-zero recipe ID")
	}

	rec = doJSON(t, h, "GET", "/recipes", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var listed []recipe.Recipe
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("Failed to decode recipe list: %v", err)
	}
	if len(listed) != 1 || listed[0].Title != "Pancakes" {
		t.Fatalf("Expected one saved recipe, got %+v", listed)
	}

	rec = doJSON(t, h, "DELETE", fmt.Sprintf("/recipes/%d", saved.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, h, "DELETE", fmt.Sprintf("/recipes/%d", saved.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on double delete, got %d", rec.Code)
	}
}

func TestRecipesScopedToTokenOwner(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})
	aliceToken := signupAndLogin(t, h, "alice@example.com")
	bobToken := signupAndLogin(t, h, "bob@example.com")

	rec := doJSON(t, h, "POST", "/save-recipe", aliceToken, map[string]any{
		"title":        "Alice's Pie",
		"ingredients":  []string{"apples"},
		"instructions": []string{"bake"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	var saved recipe.Recipe
	if err := json.NewDecoder(rec.Body).Decode(&saved); err != nil {
		t.Fatalf("Failed to decode saved recipe: %v", err)
	}

	rec = doJSON(t, h, "GET", "/recipes", bobToken, nil)
	var listed []recipe.Recipe
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("Failed to decode recipe list: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("Expected Bob's list to be empty, got %+v", listed)
	}

	rec = doJSON(t, h, "DELETE", fmt.Sprintf("/recipes/%d", saved.ID), bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when deleting another owner's recipe, got %d", rec.Code)
	}
}

func TestMealPlanFlow(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})
	token := signupAndLogin(t, h, "alice@example.com")

	rec := doJSON(t, h, "POST", "/save-recipe", token, map[string]any{
		"title":        "Lasagna",
		"ingredients":  []string{"pasta"},
		"instructions": []string{"bake"},
	})
	var saved recipe.Recipe
	if err := json.NewDecoder(rec.Body).Decode(&saved); err != nil {
		t.Fatalf("Failed to decode saved recipe: %v", err)
	}

	rec = doJSON(t, h, "POST", "/meal-plan", token, map[string]any{
		"date": "2026-09-05", "meal_type": "dinner", "recipe_id": saved.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var entry mealplan.Entry
	if err := json.NewDecoder(rec.Body).Decode(&entry); err != nil {
		t.Fatalf("Failed to decode entry: %v", err)
	}

	rec = doJSON(t, h, "GET", "/meal-plan?from=2026-09-01&to=2026-09-30", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var entries []mealplan.Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("Failed to decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Date != "2026-09-05" {
		t.Fatalf("Expected one entry for 2026-09-05, got %+v", entries)
	}

	rec = doJSON(t, h, "DELETE", fmt.Sprintf("/meal-plan/%d", entry.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
}

func TestMealPlanValidation(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})
	token := signupAndLogin(t, h, "alice@example.com")

	rec := doJSON(t, h, "POST", "/meal-plan", token, map[string]any{
		"date": "not-a-date", "meal_type": "dinner",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad date, got %d", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/meal-plan", token, map[string]any{
		"date": "2026-09-05", "meal_type": "brunch",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad meal type, got %d", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/meal-plan", token, map[string]any{
		"date": "2026-09-05", "meal_type": "dinner", "recipe_id": 9999,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a nonexistent recipe reference, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &stubExtractor{})
	rec := doJSON(t, h, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode health body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", body["status"])
	}
}
