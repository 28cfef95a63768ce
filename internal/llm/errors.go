package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when a client is requested without a credential.
	ErrMissingAPIKey = errors.New("API key is required")
	// ErrEmptyResponse is returned when the provider answered without usable content.
	ErrEmptyResponse = errors.New("empty response from provider")
)

// APIError is a non-2xx answer from the provider.
type APIError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API request failed (%d)", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API request failed (%d). %s", e.Provider, e.StatusCode, e.Body)
}
