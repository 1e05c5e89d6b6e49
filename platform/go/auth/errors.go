package auth

import (
	"errors"
	"fmt"
)

// Reason codes reported with every authentication failure.
const (
	ReasonMissingToken     = "missing_token"
	ReasonMalformed        = "malformed"
	ReasonInvalidSignature = "invalid_signature"
	ReasonExpired          = "expired"
	ReasonNotYetValid      = "not_yet_valid"
	ReasonIssuerMismatch   = "issuer_mismatch"
	ReasonAudienceMismatch = "audience_mismatch"
	ReasonMissingSubject   = "missing_subject"
	ReasonInvalidToken     = "invalid_token"
)

// UnauthorizedError is returned when a request cannot be bound to an identity.
type UnauthorizedError struct {
	Reason  string
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized: " + e.Reason
	}
	return fmt.Sprintf("unauthorized (%s): %s", e.Reason, e.Message)
}

func newUnauthorized(reason, message string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason, Message: message}
}

// AsUnauthorized reports whether err is an UnauthorizedError and returns it.
func AsUnauthorized(err error) (*UnauthorizedError, bool) {
	var ue *UnauthorizedError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
