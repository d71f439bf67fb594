package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy for provider adapters. InvalidModelSelection is rejected
// pre-flight with no I/O; the rest classify failures of live calls.
var (
	// ErrInvalidModelSelection marks a (provider, model) pair outside the
	// static catalog. This is a caller programming error and is the only
	// error the top-level services propagate.
	ErrInvalidModelSelection = errors.New("invalid provider/model selection")

	// ErrProviderUnavailable marks an unreachable or misconfigured backend.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited marks backend throttling. Callers may retry after a
	// backoff delay.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrGeneration marks a non-recoverable provider-side failure.
	// Adapters do not retry generation calls; retry is a caller-level
	// policy decision.
	ErrGeneration = errors.New("generation failed")
)

// ProviderError carries provider identity and HTTP status alongside the
// classified sentinel, so callers can both match with errors.Is and log
// the underlying detail.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusRequestTimeout, code >= 500:
		return ErrProviderUnavailable
	default:
		return ErrGeneration
	}
}
