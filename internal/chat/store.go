// Package chat keeps in-memory, append-only chat logs. Nothing survives a restart.
package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/devsecops-visualizer/internal/types"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("chat session not found")

// Session scopes
const (
	ScopeAssistant = "assistant"
	ScopeIncident  = "incident"
)

// Session is a copy of one chat log.
type Session struct {
	ID         uuid.UUID           `json:"id"`
	Scope      string              `json:"scope"`
	IncidentID string              `json:"incident_id,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	Messages   []types.ChatMessage `json:"messages"`
}

// Store holds sessions keyed by id.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		now:      time.Now,
	}
}

// Create opens a session. An empty incidentID opens an assistant session.
func (s *Store) Create(incidentID string) Session {
	sess := &Session{
		ID:         uuid.New(),
		Scope:      ScopeAssistant,
		IncidentID: incidentID,
		CreatedAt:  s.now(),
		Messages:   []types.ChatMessage{},
	}
	if incidentID != "" {
		sess.Scope = ScopeIncident
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess.clone()
}

// Get returns a copy of the session.
func (s *Store) Get(id uuid.UUID) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess.clone(), nil
}

// Append adds a message to the end of the session log and returns it with its timestamp.
func (s *Store) Append(id uuid.UUID, role, text, errorKind string) (types.ChatMessage, error) {
	msg := types.ChatMessage{Role: role, Text: text, ErrorKind: errorKind}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return types.ChatMessage{}, ErrSessionNotFound
	}
	msg.CreatedAt = s.now()
	sess.Messages = append(sess.Messages, msg)
	return msg, nil
}

// Delete removes a session.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (sess *Session) clone() Session {
	cp := *sess
	cp.Messages = append([]types.ChatMessage(nil), sess.Messages...)
	if cp.Messages == nil {
		cp.Messages = []types.ChatMessage{}
	}
	return cp
}
