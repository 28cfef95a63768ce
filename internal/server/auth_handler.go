package server

import (
	"log"
	"net/http"

	"github.com/jonathan/devsecops-visualizer/internal/types"
)

// handleIssueToken exchanges the operator password for a bearer token. It is
// only available when auth is configured with an operator password hash.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.auth.OperatorPasswordHash == "" {
		s.errorFrom(w, &ErrAuthDisabled{})
		return
	}

	var req types.TokenRequest
	if err := decodeRequest(r, &req, false); err != nil {
		s.errorFrom(w, err)
		return
	}

	if !s.passwords.VerifyPassword(req.Password, s.auth.OperatorPasswordHash) {
		log.Printf("[auth] rejected token request from %s", clientID(r))
		s.errorFrom(w, &ErrInvalidCredentials{})
		return
	}

	token, expiresAt, err := s.jwtService.GenerateToken(OperatorSubject)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	s.jsonResponse(w, http.StatusOK, types.TokenResponse{Token: token, ExpiresAt: expiresAt})
}
