// Package relay turns an instruction and a question into one chat completion.
// Every outcome, including configuration and provider failures, is returned
// as a Result value.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jonathan/devsecops-visualizer/internal/llm"
)

// Query is one relay request.
type Query struct {
	Instruction string
	Question    string
}

// Relay sends queries to the configured provider.
type Relay struct {
	client llm.Client
	model  string
}

// New builds a relay from configuration. An empty apiKey is valid: every
// query then fails with KindMissingCredential without touching the network.
func New(ctx context.Context, cfg *llm.Config, apiKey string) (*Relay, error) {
	client, err := llm.NewClient(ctx, cfg, apiKey)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		log.Printf("[relay] no API key configured; AI answers are disabled")
		return &Relay{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Relay{client: client, model: client.Model()}, nil
}

// NewWithClient builds a relay around an existing client. A nil client
// behaves like a missing credential.
func NewWithClient(client llm.Client) *Relay {
	if client == nil {
		return &Relay{}
	}
	return &Relay{client: client, model: client.Model()}
}

// Configured reports whether a credential is available.
func (r *Relay) Configured() bool {
	return r.client != nil
}

// Model returns the configured model, or "" without a credential.
func (r *Relay) Model() string {
	return r.model
}

// Query performs at most one provider call.
func (r *Relay) Query(ctx context.Context, q Query) Result {
	if r.client == nil {
		return Failure(KindMissingCredential, "no API key is set. Add OPENROUTER_API_KEY to your .env and restart the server.")
	}

	answer, err := r.client.Complete(ctx, q.Instruction, q.Question)
	if err != nil {
		result := classify(err)
		log.Printf("[relay] query failed (%s): %v", result.Kind, err)
		return result
	}
	return Success(answer)
}

// Close releases the underlying client.
func (r *Relay) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func classify(err error) Result {
	var apiErr *llm.APIError
	switch {
	case errors.As(err, &apiErr):
		return Failure(KindHTTPStatus, apiErr.Error())
	case errors.Is(err, llm.ErrEmptyResponse):
		return Failure(KindEmptyResponse, "the AI provider returned an empty response.")
	case errors.Is(err, llm.ErrMissingAPIKey):
		return Failure(KindMissingCredential, err.Error())
	default:
		return Failure(KindTransport, fmt.Sprintf("AI request failed: %v", err))
	}
}
