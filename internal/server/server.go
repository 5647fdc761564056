package server

import (
	"context"
	"net/http"

	"recipe-extractor/internal/auth"
	"recipe-extractor/internal/cache"
	"recipe-extractor/internal/config"
	"recipe-extractor/internal/extract"
	"recipe-extractor/internal/llm"
	"recipe-extractor/internal/mealplan"
	"recipe-extractor/internal/metrics"
	"recipe-extractor/internal/recipe"
	"recipe-extractor/internal/user"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// RecipeExtractor runs the extraction pipeline for a URL.
type RecipeExtractor interface {
	Extract(ctx context.Context, url string) (extract.Result, error)
}

// Pinger reports backend liveness for the health endpoint.
type Pinger interface {
	Ping() error
}

// Server holds the HTTP layer's dependencies.
type Server struct {
	cfg          *config.Config
	extractor    RecipeExtractor
	userRepo     *user.Repository
	recipeRepo   *recipe.Repository
	planRepo     *mealplan.Repository
	metricsStore *metrics.Store
	resultCache  *cache.Cache
	db           Pinger
	chat         llm.ChatClient
}

// New creates a Server. metricsStore, resultCache, db and chat may be nil.
func New(
	cfg *config.Config,
	extractor RecipeExtractor,
	userRepo *user.Repository,
	recipeRepo *recipe.Repository,
	planRepo *mealplan.Repository,
	metricsStore *metrics.Store,
	resultCache *cache.Cache,
	db Pinger,
	chat llm.ChatClient,
) *Server {
	return &Server{
		cfg:          cfg,
		extractor:    extractor,
		userRepo:     userRepo,
		recipeRepo:   recipeRepo,
		planRepo:     planRepo,
		metricsStore: metricsStore,
		resultCache:  resultCache,
		db:           db,
		chat:         chat,
	}
}

// Router builds the HTTP handler with CORS, rate limiting and bearer-auth
// context injection applied to every route.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/signup", s.handleSignup).Methods("POST")
	r.HandleFunc("/token", s.handleToken).Methods("POST")
	r.HandleFunc("/extract-recipe", s.handleExtractRecipe).Methods("POST")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.Handle("/save-recipe", s.requireAuth(s.handleSaveRecipe)).Methods("POST")
	r.Handle("/recipes", s.requireAuth(s.handleListRecipes)).Methods("GET")
	r.Handle("/recipes/{id:[0-9]+}", s.requireAuth(s.handleDeleteRecipe)).Methods("DELETE")

	r.Handle("/meal-plan", s.requireAuth(s.handleCreateMealPlanEntry)).Methods("POST")
	r.Handle("/meal-plan", s.requireAuth(s.handleListMealPlan)).Methods("GET")
	r.Handle("/meal-plan/{id:[0-9]+}", s.requireAuth(s.handleDeleteMealPlanEntry)).Methods("DELETE")

	var h http.Handler = r
	h = auth.Middleware([]byte(s.cfg.JWTSecret))(h)
	h = s.rateLimit(h)
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{s.cfg.AllowedOrigin}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	return h
}

func (s *Server) requireAuth(h http.HandlerFunc) http.Handler {
	return auth.Require(h)
}
