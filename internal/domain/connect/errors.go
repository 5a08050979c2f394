package connect

import (
	"errors"
	"fmt"
)

// DiscoveryError means both fallback probes failed. The user recovers by
// choosing a different organization.
type DiscoveryError struct {
	FHIRBaseURL string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("could not discover OAuth endpoints for %s", e.FHIRBaseURL)
}

// ValidationError is a caller defect: a required field is missing.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// AuthorizationDeniedError means the identity provider returned an error on
// redirect, typically because the user declined consent.
type AuthorizationDeniedError struct {
	Code        string
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// TokenExchangeError means the upstream identity provider rejected the
// code/verifier pair. The upstream error text is passed through verbatim so
// OAuth failures stay debuggable.
type TokenExchangeError struct {
	StatusCode  int
	OAuthError  string
	Description string
}

func (e *TokenExchangeError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.OAuthError, e.Description)
	}
	return e.OAuthError
}

// CallbackProtocolError means the redirect return was malformed: missing
// code/state or an undecodable state payload. Recovery requires restarting
// from organization selection.
type CallbackProtocolError struct {
	Reason string
}

func (e *CallbackProtocolError) Error() string {
	return fmt.Sprintf("malformed callback: %s", e.Reason)
}

// ErrPersistence wraps store read/write failures. These are never retried
// automatically: "was the token already saved?" must not be answered by
// guessing.
var ErrPersistence = errors.New("connection store failure")
