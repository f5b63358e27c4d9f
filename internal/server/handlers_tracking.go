package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/tracking"
)

type loadInstanceRequest struct {
	SessionID   uuid.UUID `json:"session_id"`
	ExerciseKey string    `json:"exercise_key"`
}

func (s *Server) handleLoadInstance(w http.ResponseWriter, r *http.Request) {
	var req loadInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.ExerciseKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise_key required"})
		return
	}

	svc, err := s.registry.Load(r.Context(), req.SessionID, req.ExerciseKey)
	if err != nil {
		s.log.Error("loading instance failed", "exercise", req.ExerciseKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, instanceView(svc))
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, instanceView(svc))
}

func (s *Server) handleCloseInstance(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	inst := svc.Instance()
	if err := s.store.CloseInstance(r.Context(), inst.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.registry.Release(inst.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type completeSetRequest struct {
	Weight float64  `json:"weight"`
	Reps   int      `json:"reps"`
	RPE    *float64 `json:"rpe,omitempty"`
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	index, ok := setIndex(w, r)
	if !ok {
		return
	}

	var req completeSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := svc.CompleteSet(r.Context(), index, req.Weight, req.Reps, req.RPE); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, instanceView(svc))
}

func (s *Server) handleUncompleteSet(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	index, ok := setIndex(w, r)
	if !ok {
		return
	}
	if err := svc.UncompleteSet(r.Context(), index); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, instanceView(svc))
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	if err := svc.AddSet(r.Context()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, instanceView(svc))
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	index, ok := setIndex(w, r)
	if !ok {
		return
	}
	if err := svc.RemoveSet(r.Context(), index); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, instanceView(svc))
}

func (s *Server) handleApplySuggestion(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	if err := svc.ApplySuggestion(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, instanceView(svc))
}

func (s *Server) handleDiscardSuggestion(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	svc.DiscardSuggestion()
	writeJSON(w, http.StatusOK, instanceView(svc))
}

type timerActionRequest struct {
	Seconds int                   `json:"seconds,omitempty"`
	Source  models.RestTimeSource `json:"source,omitempty"`
	Force   bool                  `json:"force,omitempty"`
}

// handleTimerAction routes a timer command. Illegal transitions are
// idempotent no-ops (a double-tapped pause is not an error), so every
// recognized action answers with the resulting snapshot.
func (s *Server) handleTimerAction(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}

	var req timerActionRequest
	if r.Body != nil {
		// body optional for actions without parameters
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	t := svc.Timer()
	switch chi.URLParam(r, "action") {
	case "start":
		seconds := req.Seconds
		if seconds <= 0 {
			seconds = s.resolver.Resolve(nil, svc.Instance().ExerciseKey)
		}
		source := req.Source
		if source == "" {
			source = s.resolver.Source(nil, svc.Instance().ExerciseKey)
		}
		t.Start(seconds, source, req.Force)
	case "pause":
		t.Pause()
	case "resume":
		t.Resume()
	case "stop":
		t.Stop()
	case "skip":
		t.Skip()
	case "extend":
		t.Extend(req.Seconds)
	case "reduce":
		t.Reduce(req.Seconds)
	case "undo":
		t.UndoLastAdjustment()
	case "suspend":
		t.Suspend()
	case "wake":
		t.Wake()
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown timer action"})
		return
	}
	writeJSON(w, http.StatusOK, t.Snapshot())
}

func (s *Server) handleTimerSnapshot(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timer":       svc.Timer().Snapshot(),
		"adjustments": svc.Timer().Adjustments(),
	})
}

func setIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || index < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set index"})
		return 0, false
	}
	return index, true
}

func instanceView(svc *tracking.Service) map[string]any {
	return map[string]any{
		"instance":          svc.Instance(),
		"current_set_index": svc.CurrentSetIndex(),
		"suggestion":        svc.Suggestion(),
		"dirty":             svc.Dirty(),
	}
}
