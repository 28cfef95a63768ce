package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/devsecops-visualizer/internal/chat"
	"github.com/jonathan/devsecops-visualizer/internal/prompts"
	"github.com/jonathan/devsecops-visualizer/internal/relay"
	"github.com/jonathan/devsecops-visualizer/internal/sre"
	"github.com/jonathan/devsecops-visualizer/internal/types"
)

// IncidentChatResponse is the SRE assistant's answer to one question.
type IncidentChatResponse struct {
	types.QueryResponse
	IncidentID string     `json:"incident_id"`
	Source     sre.Source `json:"source"`
}

// MessageResponse returns both messages appended to a chat session.
type MessageResponse struct {
	SessionID string            `json:"session_id"`
	Question  types.ChatMessage `json:"question"`
	Answer    types.ChatMessage `json:"answer"`
	Source    sre.Source        `json:"source,omitempty"`
}

type validatable interface {
	Validate() error
}

// decodeRequest decodes and validates a JSON body. An empty body decodes to
// the zero value when allowEmpty is set.
func decodeRequest(r *http.Request, v validatable, allowEmpty bool) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
		}
	}
	if err := v.Validate(); err != nil {
		return validationError(err)
	}
	return nil
}

func queryResponse(res relay.Result) types.QueryResponse {
	return types.QueryResponse{OK: res.OK, Answer: res.Answer(), ErrorKind: string(res.Kind)}
}

// ask relays an assistant question, adding stage context for a known stage.
func (s *Server) ask(ctx context.Context, req *types.QueryRequest) (relay.Result, error) {
	var stageCtx *types.StageContext
	if req.StageID != "" {
		stage, err := s.stage(req.StageID)
		if err != nil {
			return relay.Result{}, err
		}
		stageCtx = stage.Context()
	}
	return s.relay.Query(ctx, relay.Query{
		Instruction: prompts.Build(req.EffectiveMode(), req.Question, stageCtx),
		Question:    req.Question,
	}), nil
}

// handleAIQuery answers one assistant question. Relay failures are reported
// in the body with status 200.
func (s *Server) handleAIQuery(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	if err := decodeRequest(r, &req, false); err != nil {
		s.errorFrom(w, err)
		return
	}

	res, err := s.ask(r.Context(), &req)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, queryResponse(res))
}

func (s *Server) handleIncidentChat(w http.ResponseWriter, r *http.Request) {
	incident, err := s.incident(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	var req types.IncidentChatRequest
	if err := decodeRequest(r, &req, false); err != nil {
		s.errorFrom(w, err)
		return
	}

	reply := s.sre.Ask(r.Context(), &incident, req.Question)
	s.jsonResponse(w, http.StatusOK, IncidentChatResponse{
		QueryResponse: queryResponse(reply.Result),
		IncidentID:    incident.ID,
		Source:        reply.Source,
	})
}

// handleCreateSession opens an assistant session, or an incident session when
// incident_id is given.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSessionRequest
	if err := decodeRequest(r, &req, true); err != nil {
		s.errorFrom(w, err)
		return
	}
	if req.IncidentID != "" {
		if _, err := s.incident(req.IncidentID); err != nil {
			s.errorFrom(w, err)
			return
		}
	}
	s.jsonResponse(w, http.StatusCreated, s.chats.Create(req.IncidentID))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := s.chats.Get(id)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.chats.Delete(id); err != nil {
		s.errorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePostMessage appends the question, answers it and appends the answer.
// Concurrent posts to one session each append their own pair; answers land
// in completion order.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := s.chats.Get(id)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	var req types.QueryRequest
	if err := decodeRequest(r, &req, false); err != nil {
		s.errorFrom(w, err)
		return
	}

	question, err := s.chats.Append(id, types.RoleUser, req.Question, "")
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	var (
		res    relay.Result
		source sre.Source
	)
	if sess.Scope == chat.ScopeIncident {
		incident, err := s.incident(sess.IncidentID)
		if err != nil {
			s.errorFrom(w, err)
			return
		}
		reply := s.sre.Ask(r.Context(), &incident, req.Question)
		res, source = reply.Result, reply.Source
	} else {
		res, err = s.ask(r.Context(), &req)
		if err != nil {
			s.errorFrom(w, err)
			return
		}
	}

	answer, err := s.chats.Append(id, types.RoleAI, res.Answer(), string(res.Kind))
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, MessageResponse{
		SessionID: id.String(),
		Question:  question,
		Answer:    answer,
		Source:    source,
	})
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid session ID format")
		return uuid.Nil, false
	}
	return id, true
}
