package server

import (
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/devsecops-visualizer/internal/db"
	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
)

// RunResponse is returned when a run is accepted.
type RunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// StatusResponse describes the runner state.
type StatusResponse struct {
	Running  bool              `json:"running"`
	Statuses pipeline.Snapshot `json:"statuses"`
}

// handleStartRun starts a run over the full stage list in the background.
func (s *Server) handleStartRun(w http.ResponseWriter, _ *http.Request) {
	runID, err := s.runner.Start(s.runCtx, s.catalog.Stages())
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	log.Printf("[server] started run %s", runID)
	s.jsonResponse(w, http.StatusAccepted, RunResponse{RunID: runID.String(), Status: "started"})
}

// handleStreamRun starts a run and streams it as SSE: one "snapshot" event
// per status change, then one "complete" event carrying the result. The run
// keeps going if the client disconnects.
func (s *Server) handleStreamRun(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		s.errorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	stages := s.catalog.Stages()
	events := make(chan pipeline.Event, len(stages)+2)
	done := make(chan struct{})
	defer close(done)

	// Subscribe before starting so the reset snapshot is not missed.
	unsubscribe := s.runner.Subscribe(func(ev pipeline.Event) {
		select {
		case events <- ev:
		case <-done:
		}
	})
	defer unsubscribe()

	runID, err := s.runner.Start(s.runCtx, stages)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	id := runID.String()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	for {
		select {
		case <-r.Context().Done():
			log.Printf("[server] stream client left run %s", id)
			return
		case ev := <-events:
			if ev.RunID != id {
				continue
			}
			switch ev.Kind {
			case pipeline.EventSnapshot:
				if err := sse.WriteEvent(sseSnapshot, ev); err != nil {
					return
				}
			case pipeline.EventFinished:
				if ev.Result.Outcome == pipeline.OutcomeAborted {
					sse.WriteError("run aborted: server shutting down")
					return
				}
				if err := sse.WriteEvent(sseComplete, ev.Result); err != nil {
					log.Printf("[server] failed to send completion for run %s: %v", id, err)
				}
				return
			}
		}
	}
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, StatusResponse{
		Running:  s.runner.Running(),
		Statuses: s.runner.Latest(),
	})
}

// handleListRuns lists finished runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", db.DefaultListLimit, db.MaxListLimit)
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if runs == nil {
		runs = []pipeline.Result{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": len(runs),
		"limit": limit,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return
	}

	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorFrom(w, &ErrNotFound{Kind: "run", ID: runID.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}
