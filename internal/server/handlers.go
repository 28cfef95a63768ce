package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/devsecops-visualizer/internal/types"
)

// parseQueryInt parses an integer query parameter with default and max values
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	val, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}

// handleListStages lists the stages in pipeline order with the indices at
// which a new category begins.
func (s *Server) handleListStages(w http.ResponseWriter, _ *http.Request) {
	stages := s.catalog.Stages()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"stages":     stages,
		"boundaries": s.catalog.CategoryBoundaries(),
		"total":      len(stages),
	})
}

func (s *Server) handleGetStage(w http.ResponseWriter, r *http.Request) {
	stage, err := s.stage(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stage)
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"categories": s.catalog.StagesByCategory(),
	})
}

func (s *Server) handleListStageIncidents(w http.ResponseWriter, r *http.Request) {
	stage, err := s.stage(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	incidents := s.catalog.IncidentsForStage(stage.ID)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"stage_id":  stage.ID,
		"incidents": incidents,
		"total":     len(incidents),
	})
}

// handleListIncidents lists incidents, optionally filtered by ?stage= and
// ?severity= (case-insensitive).
func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	var incidents []types.Incident
	if stageID := r.URL.Query().Get("stage"); stageID != "" {
		incidents = s.catalog.IncidentsForStage(stageID)
	} else {
		incidents = s.catalog.Incidents()
	}

	if severity := r.URL.Query().Get("severity"); severity != "" {
		filtered := make([]types.Incident, 0, len(incidents))
		for _, inc := range incidents {
			if strings.EqualFold(inc.Severity, severity) {
				filtered = append(filtered, inc)
			}
		}
		incidents = filtered
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"incidents": incidents,
		"total":     len(incidents),
	})
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := s.incident(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, incident)
}

// handleIncidentRCA returns the root cause analysis, from the model when a
// credential is configured and from the dataset otherwise.
func (s *Server) handleIncidentRCA(w http.ResponseWriter, r *http.Request) {
	incident, err := s.incident(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.sre.AutoRCA(r.Context(), &incident))
}

func (s *Server) stage(id string) (types.Stage, error) {
	stage, ok := s.catalog.Stage(id)
	if !ok {
		return types.Stage{}, &ErrNotFound{Kind: "stage", ID: id}
	}
	return stage, nil
}

func (s *Server) incident(id string) (types.Incident, error) {
	incident, ok := s.catalog.Incident(id)
	if !ok {
		return types.Incident{}, &ErrNotFound{Kind: "incident", ID: id}
	}
	return incident, nil
}
