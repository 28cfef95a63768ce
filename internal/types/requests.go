package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Assistant modes
const (
	ModeGeneral   = "general"
	ModeStage     = "stage"
	ModeInterview = "interview"
)

// QueryRequest is the body of an assistant question.
type QueryRequest struct {
	Mode     string `json:"mode" validate:"omitempty,oneof=general stage interview"`
	Question string `json:"question" validate:"required,max=4000"`
	StageID  string `json:"stage_id,omitempty" validate:"omitempty,max=64"`
}

// IncidentChatRequest is the body of a question to the SRE assistant.
type IncidentChatRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

// CreateSessionRequest opens a chat session.
type CreateSessionRequest struct {
	IncidentID string `json:"incident_id,omitempty" validate:"omitempty,max=64"`
}

// TokenRequest exchanges the operator password for a bearer token.
type TokenRequest struct {
	Password string `json:"password" validate:"required"`
}

// QueryResponse is returned for every assistant question.
type QueryResponse struct {
	OK        bool   `json:"ok"`
	Answer    string `json:"answer"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// TokenResponse carries an operator bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Validate validates the QueryRequest using the validator.
func (r *QueryRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// EffectiveMode returns the mode, defaulting to general.
func (r *QueryRequest) EffectiveMode() string {
	if r.Mode == "" {
		return ModeGeneral
	}
	return r.Mode
}

// Validate validates the IncidentChatRequest using the validator.
func (r *IncidentChatRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CreateSessionRequest using the validator.
func (r *CreateSessionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the TokenRequest using the validator.
func (r *TokenRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
