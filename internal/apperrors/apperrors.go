// Package apperrors defines the error taxonomy shared by the playlist pipeline.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is returned when the session holds no Spotify credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrMalformedCredential is returned when the stored credential cannot be decoded.
	ErrMalformedCredential = errors.New("malformed credential")

	// ErrMalformedResponse is returned when an external API answers with a body
	// that does not match the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMissingRequiredField is returned when a setlist lacks the artist name or event date.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrAuthProvider is returned when the OAuth provider rejects a token request.
	ErrAuthProvider = errors.New("auth provider error")
)

// UpstreamError reports a non-success status from an external API.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.Status, e.Message)
}

// Upstream creates an UpstreamError for the given service and status.
func Upstream(service string, status int, message string) *UpstreamError {
	return &UpstreamError{Service: service, Status: status, Message: message}
}

// HTTPStatus maps an error from the pipeline to the status returned to the caller.
func HTTPStatus(err error) int {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrMalformedCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrMissingRequiredField):
		return http.StatusUnprocessableEntity
	case errors.As(err, &upstream),
		errors.Is(err, ErrMalformedResponse),
		errors.Is(err, ErrAuthProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
