package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/resttime"
)

// handleResolveRestTime resolves a rest duration. The optional override
// query parameter stands in for a set-level override so clients can
// preview precedence without an active set.
func (s *Server) handleResolveRestTime(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")

	var set *models.Set
	if o := r.URL.Query().Get("override"); o != "" {
		secs, err := strconv.Atoi(o)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid override"})
			return
		}
		set = &models.Set{RestTimeOverride: &secs}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"seconds": s.resolver.Resolve(set, exercise),
		"source":  s.resolver.Source(set, exercise),
	})
}

func (s *Server) handleExportRestConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.resolver.Export())
}

// handleImportRestConfig replaces the rest-time table. Unknown or stale
// keys in the payload are skipped by the resolver, never rejected.
func (s *Server) handleImportRestConfig(w http.ResponseWriter, r *http.Request) {
	var cfg resttime.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	s.resolver.Import(cfg)
	s.persistRestConfig(r.Context())
	writeJSON(w, http.StatusOK, s.resolver.Export())
}
