// Package apperr defines the error taxonomy shared by the client core.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError is a local input problem. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AuthError reports a 401 from a protected call. The credentials have been
// cleared by the time callers see it.
type AuthError struct {
	Op string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: unauthorized", e.Op)
}

// NetworkError wraps a transport failure, including a client timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response other than 401.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: API %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: API %d: %s", e.Op, e.Status, e.Message)
}

// PartialSuccessError reports that an avatar was created but could not be
// finalized. The draft avatar still exists server-side.
type PartialSuccessError struct {
	AvatarID int64
	Err      error
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("avatar %d created as draft but finalize failed: %v", e.AvatarID, e.Err)
}

func (e *PartialSuccessError) Unwrap() error { return e.Err }

// IsAuth reports whether err carries an AuthError.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// UserMessage renders err for display on a form or session. Server-reported
// messages win; otherwise fallback is used.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}

	var partial *PartialSuccessError
	if errors.As(err, &partial) {
		reason := UserMessage(partial.Err, "finalize failed")
		return fmt.Sprintf("Avatar was saved as a draft but could not be activated: %s", reason)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "Could not reach the server, please try again"
	}

	return fallback
}
