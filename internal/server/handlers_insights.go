package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/repcoach/internal/models"
)

// timeNow is swappable in tests.
var timeNow = time.Now

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.store.ListExercises(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := s.store.Exercise(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise not found"})
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.History(r.Context(), chi.URLParam(r, "key"), s.historyLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleLastSession(w http.ResponseWriter, r *http.Request) {
	inst, err := s.store.PreviousSession(r.Context(), chi.URLParam(r, "key"), timeNow())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// handlePredictPerformance answers null with 200 when history is too thin:
// "not enough data yet" is a steady state, not a fault.
func (s *Server) handlePredictPerformance(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("exercise")
	weight := queryFloat(r, "weight")
	reps := queryInt(r, "reps")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}

	points, err := s.store.History(r.Context(), key, s.historyLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.predictor.PredictNextPerformance(points, weight, reps))
}

func (s *Server) handlePredictTimeline(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("exercise")
	target := queryFloat(r, "target")
	current := queryFloat(r, "current")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}

	points, err := s.store.History(r.Context(), key, s.historyLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.predictor.PredictProgressionTimeline(points, target, current))
}

func (s *Server) handleRestRecommendation(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}

	sets := svc.Sets()
	index := svc.CurrentSetIndex()
	if index >= len(sets) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	var previous []models.Set
	for _, set := range sets[:index] {
		if set.Completed {
			previous = append(previous, set)
		}
	}
	writeJSON(w, http.StatusOK, s.predictor.PredictOptimalRestTime(svc.Exercise(), sets[index], previous))
}

func (s *Server) handleRecommendSets(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	ex, err := s.store.Exercise(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise not found"})
		return
	}

	prev, err := s.store.PreviousSession(r.Context(), key, timeNow())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	var lastSets []models.Set
	if prev != nil {
		lastSets = prev.Sets
	}
	writeJSON(w, http.StatusOK, s.engine.RecommendNextSets(*ex, lastSets))
}

func (s *Server) handleSuggestDeload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	ex, err := s.store.Exercise(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise not found"})
		return
	}

	points, err := s.store.History(r.Context(), key, s.historyLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.SuggestDeload(*ex, points))
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}

	inst := svc.Instance()
	prev, err := s.store.PreviousSession(r.Context(), inst.ExerciseKey, inst.Date)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	var prevSets []models.Set
	if prev != nil {
		prevSets = prev.Sets
	}
	writeJSON(w, http.StatusOK, s.engine.AnalyzePerformance(svc.Sets(), prevSets))
}

func queryFloat(r *http.Request, name string) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	if err != nil {
		return 0
	}
	return v
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
