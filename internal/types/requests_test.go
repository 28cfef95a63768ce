//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request QueryRequest
		wantErr bool
	}{
		{
			name:    "valid general request",
			request: QueryRequest{Mode: ModeGeneral, Question: "What is CI?"},
		},
		{
			name:    "empty mode is allowed",
			request: QueryRequest{Question: "What is CD?"},
		},
		{
			name:    "stage mode with stage id",
			request: QueryRequest{Mode: ModeStage, Question: "Why?", StageID: "build"},
		},
		{
			name:    "interview mode",
			request: QueryRequest{Mode: ModeInterview, Question: "Ask me something"},
		},
		{
			name:    "unknown mode",
			request: QueryRequest{Mode: "incident", Question: "Why?"},
			wantErr: true,
		},
		{
			name:    "missing question",
			request: QueryRequest{Mode: ModeGeneral},
			wantErr: true,
		},
		{
			name:    "question too long",
			request: QueryRequest{Question: strings.Repeat("a", 4001)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryRequest_EffectiveMode(t *testing.T) {
	assert.Equal(t, ModeGeneral, (&QueryRequest{}).EffectiveMode())
	assert.Equal(t, ModeInterview, (&QueryRequest{Mode: ModeInterview}).EffectiveMode())
}

func TestIncidentChatRequest_Validation(t *testing.T) {
	assert.NoError(t, (&IncidentChatRequest{Question: "root cause?"}).Validate())
	assert.Error(t, (&IncidentChatRequest{}).Validate())
}

func TestTokenRequest_Validation(t *testing.T) {
	assert.NoError(t, (&TokenRequest{Password: "secret"}).Validate())
	assert.Error(t, (&TokenRequest{}).Validate())
}
