package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/insights"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/overload"
	"github.com/claude/repcoach/internal/resttime"
	"github.com/claude/repcoach/internal/tracking"
)

// Store is the object-store surface the HTTP layer needs beyond what the
// tracking service consumes.
type Store interface {
	tracking.Store
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	History(ctx context.Context, exerciseKey string, limit int) ([]models.HistoricalPoint, error)
	CloseInstance(ctx context.Context, instanceID uuid.UUID) error
	LoadRestConfig(ctx context.Context) (resttime.Config, error)
	SaveRestConfig(ctx context.Context, cfg resttime.Config) error
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store        Store
	resolver     *resttime.Resolver
	predictor    *insights.Predictor
	engine       *overload.Engine
	registry     *tracking.Registry
	log          *slog.Logger
	apiKey       string
	historyLimit int
	router       chi.Router
}

// New creates a new Server with all routes configured.
func New(store Store, resolver *resttime.Resolver, predictor *insights.Predictor, engine *overload.Engine, registry *tracking.Registry, apiKey string, historyLimit int, log *slog.Logger) *Server {
	s := &Server{
		store:        store,
		resolver:     resolver,
		predictor:    predictor,
		engine:       engine,
		registry:     registry,
		log:          log,
		apiKey:       apiKey,
		historyLimit: historyLimit,
		router:       chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Rest-time configuration
		r.Get("/resttime/resolve", s.handleResolveRestTime)
		r.Get("/resttime/config", s.handleExportRestConfig)
		r.With(APIKeyAuth(s.apiKey)).Put("/resttime/config", s.handleImportRestConfig)

		// Exercise taxonomy and history
		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/{key}", s.handleGetExercise)
		r.Get("/exercises/{key}/history", s.handleHistory)
		r.Get("/exercises/{key}/last-session", s.handleLastSession)
		r.Get("/exercises/{key}/recommendations", s.handleRecommendSets)
		r.Get("/exercises/{key}/deload", s.handleSuggestDeload)

		// Predictors
		r.Get("/predict/performance", s.handlePredictPerformance)
		r.Get("/predict/timeline", s.handlePredictTimeline)

		// Active exercise instances (API key required for mutation)
		r.Route("/instances", func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/load", s.handleLoadInstance)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetInstance)
				r.Post("/close", s.handleCloseInstance)
				r.Post("/sets", s.handleAddSet)
				r.Post("/sets/{n}/complete", s.handleCompleteSet)
				r.Post("/sets/{n}/uncomplete", s.handleUncompleteSet)
				r.Delete("/sets/{n}", s.handleRemoveSet)
				r.Post("/suggestion/apply", s.handleApplySuggestion)
				r.Post("/suggestion/discard", s.handleDiscardSuggestion)
				r.Get("/rest-recommendation", s.handleRestRecommendation)
				r.Get("/analysis", s.handleAnalysis)
				r.Get("/timer", s.handleTimerSnapshot)
				r.Post("/timer/{action}", s.handleTimerAction)
			})
		})
	})
}

// service resolves the single-owner tracking service for an instance ID.
func (s *Server) service(w http.ResponseWriter, r *http.Request) (*tracking.Service, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid instance ID"})
		return nil, false
	}
	svc, ok := s.registry.Lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "instance not active; load it first"})
		return nil, false
	}
	return svc, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// persistRestConfig snapshots the resolver into the store. Failures are
// logged, not surfaced: the in-memory table stays authoritative.
func (s *Server) persistRestConfig(ctx context.Context) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.SaveRestConfig(saveCtx, s.resolver.Export()); err != nil {
		s.log.Error("persisting rest config failed", "error", err)
	}
}
