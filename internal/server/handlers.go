package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"recipe-extractor/internal/auth"
	"recipe-extractor/internal/cache"
	"recipe-extractor/internal/extract"
	"recipe-extractor/internal/llm"
	"recipe-extractor/internal/mealplan"
	"recipe-extractor/internal/metrics"
	"recipe-extractor/internal/recipe"
	"recipe-extractor/internal/user"

	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Name and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	err = s.userRepo.Create(r.Context(), user.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	})
	if err != nil {
		if err == user.ErrAlreadyExists {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		log.Printf("Failed to create user: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"email": req.Email, "name": req.Name})
}

// handleToken implements an OAuth2-style password login: form-encoded
// username/password, JSON also accepted.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	email, password := credentialsFromRequest(r)
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "Incorrect email or password")
		return
	}

	u, err := s.userRepo.GetByEmail(r.Context(), email)
	if err != nil {
		log.Printf("Failed to look up user: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if u == nil || !auth.VerifyPassword(u.PasswordHash, password) {
		writeError(w, http.StatusBadRequest, "Incorrect email or password")
		return
	}

	token, err := auth.CreateAccessToken([]byte(s.cfg.JWTSecret), u.Email, s.cfg.AccessTokenExpiry)
	if err != nil {
		log.Printf("Failed to create access token: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func credentialsFromRequest(r *http.Request) (email, password string) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body struct {
			Email    string `json:"email"`
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", ""
		}
		if body.Email != "" {
			return body.Email, body.Password
		}
		return body.Username, body.Password
	}

	if err := r.ParseForm(); err != nil {
		return "", ""
	}
	return r.PostFormValue("username"), r.PostFormValue("password")
}

type extractRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleExtractRecipe(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "A url field is required")
		return
	}

	start := time.Now()
	res, err := cache.Memoize(r.Context(), s.resultCache, "extract:"+req.URL, s.cfg.CacheTTL,
		func() (extract.Result, error) {
			return s.extractor.Extract(r.Context(), req.URL)
		})

	s.recordMetric(res.Source, err, time.Since(start))

	if err != nil {
		status, detail := mapExtractionError(err)
		writeError(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, res.Recipe)
}

func (s *Server) recordMetric(source extract.Source, err error, latency time.Duration) {
	if s.metricsStore == nil {
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
		Model:     s.cfg.OllamaModel,
		Outcome:   outcome,
		LatencyMS: latency.Milliseconds(),
	}
	if s.cfg.LLMProvider == "gemini" {
		m.Model = s.cfg.GeminiModel
	}
	if err := s.metricsStore.Record(m); err != nil {
		log.Printf("Warning: failed to record extraction metric: %v", err)
	}
}

// mapExtractionError translates pipeline error kinds to HTTP responses.
// Client-side problems (bad URL, unscrapable site) must stay
// distinguishable from a degraded extraction service.
func mapExtractionError(err error) (int, string) {
	kind, ok := extract.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "Unexpected error during extraction"
	}
	switch kind {
	case extract.KindNetworkError:
		return http.StatusBadRequest, "Error fetching URL: the page could not be retrieved"
	case extract.KindExtractionFailed:
		return http.StatusBadRequest, "Error extracting recipe: the site matched a scraper but no recipe could be read"
	case extract.KindTimedOut:
		return http.StatusGatewayTimeout, "Extraction service timed out, please try again"
	case extract.KindUpstreamUnavailable:
		return http.StatusBadGateway, "Extraction service is unavailable, please try again later"
	case extract.KindMalformedOutput:
		return http.StatusInternalServerError, "Extraction service returned an unusable result"
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Extraction failed: %s", kind)
	}
}

type saveRecipeRequest struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	OriginalURL  string   `json:"original_url"`
	ImageURL     string   `json:"image_url"`
}

func (s *Server) handleSaveRecipe(w http.ResponseWriter, r *http.Request) {
	var req saveRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "A title is required")
		return
	}

	// Owner comes from the validated token, never from the body.
	rec, err := s.recipeRepo.Save(r.Context(), recipe.Recipe{
		OwnerEmail:   auth.EmailFromContext(r.Context()),
		Title:        req.Title,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		OriginalURL:  req.OriginalURL,
		ImageURL:     req.ImageURL,
	})
	if err != nil {
		log.Printf("Failed to save recipe: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save recipe")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.recipeRepo.ListByOwner(r.Context(), auth.EmailFromContext(r.Context()))
	if err != nil {
		log.Printf("Failed to list recipes: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list recipes")
		return
	}
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recipe id")
		return
	}

	deleted, err := s.recipeRepo.Delete(r.Context(), auth.EmailFromContext(r.Context()), id)
	if err != nil {
		log.Printf("Failed to delete recipe: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete recipe")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Recipe not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mealPlanRequest struct {
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	RecipeID *int64 `json:"recipe_id"`
}

func (s *Server) handleCreateMealPlanEntry(w http.ResponseWriter, r *http.Request) {
	var req mealPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	mealType, err := mealplan.ParseMealType(req.MealType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid meal_type, expected breakfast|lunch|dinner|snack")
		return
	}

	ownerEmail := auth.EmailFromContext(r.Context())

	if req.RecipeID != nil {
		rec, err := s.recipeRepo.Get(r.Context(), ownerEmail, *req.RecipeID)
		if err != nil {
			log.Printf("Failed to check recipe ownership: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create meal plan entry")
			return
		}
		if rec == nil {
			writeError(w, http.StatusNotFound, "Recipe not found")
			return
		}
	}

	entry, err := s.planRepo.Save(r.Context(), mealplan.Entry{
		OwnerEmail: ownerEmail,
		Date:       req.Date,
		MealType:   mealType,
		RecipeID:   req.RecipeID,
	})
	if err != nil {
		log.Printf("Failed to save meal plan entry: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create meal plan entry")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListMealPlan(w http.ResponseWriter, r *http.Request) {
	entries, err := s.planRepo.ListByOwner(r.Context(), auth.EmailFromContext(r.Context()),
		r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		log.Printf("Failed to list meal plan: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list meal plan")
		return
	}
	if entries == nil {
		entries = []mealplan.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDeleteMealPlanEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry id")
		return
	}

	deleted, err := s.planRepo.Delete(r.Context(), auth.EmailFromContext(r.Context()), id)
	if err != nil {
		log.Printf("Failed to delete meal plan entry: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete meal plan entry")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Meal plan entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth reports database and LLM backend reachability. A dead
// database makes the service unhealthy; an unreachable model backend only
// degrades it, since the scraper stages still work.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	body := map[string]string{}

	if s.db != nil {
		body["database"] = "ok"
		if err := s.db.Ping(); err != nil {
			body["database"] = "unreachable"
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	if p, ok := s.chat.(llm.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		body["llm"] = "ok"
		if err := p.Ping(ctx); err != nil {
			body["llm"] = "unreachable"
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	body["status"] = status
	writeJSON(w, code, body)
}
