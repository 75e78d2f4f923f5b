package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ConfigurationError reports missing or invalid connection settings. It is
// returned before any network call is made.
type ConfigurationError struct {
	Provider string
	Msg      string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured: %s", e.Provider, e.Msg)
}

// CapabilityError reports a feature the selected provider does not support.
type CapabilityError struct {
	Provider   string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s are only supported by the gemini provider (selected: %s)", e.Capability, e.Provider)
}

// TransportError reports a failed HTTP exchange. Status is 0 when no response
// was received.
type TransportError struct {
	Provider string
	Status   int
	Body     string
	Err      error
	// RetryAfter is the wait the provider asked for, if any.
	RetryAfter time.Duration
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a response envelope missing the fields the adapter
// needs, e.g. a completion with no choices.
type ProtocolError struct {
	Provider string
	Msg      string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid response from %s: %s", e.Provider, e.Msg)
}

// ParseError reports model output that could not be turned into the expected
// JSON value. Raw holds the text as received.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse the JSON from the model's response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DomainError reports a violated caller precondition.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string { return e.Msg }

var (
	ErrNoSource = &DomainError{Msg: "no document source provided"}
	ErrNoFlow   = &DomainError{Msg: "cannot refine flow, process is not initialized"}
)

// IsRetryable reports whether repeating the same call could succeed:
// transport failures without a response, throttling, server errors and
// malformed envelopes. Everything else would fail the same way again.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status == 0 || te.Status == http.StatusTooManyRequests || te.Status >= 500
	}
	var pe *ProtocolError
	return errors.As(err, &pe)
}
