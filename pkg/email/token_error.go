package email

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// TokenErrorClass tells operators what to fix when token acquisition fails.
type TokenErrorClass string

const (
	InvalidCredentials     TokenErrorClass = "invalid_credentials"
	InvalidRequest         TokenErrorClass = "invalid_request"
	InsufficientPermission TokenErrorClass = "insufficient_permission"
	Transient              TokenErrorClass = "transient"
)

type TokenError struct {
	Class  TokenErrorClass
	Status int
	Code   string
	Err    error
}

func (e *TokenError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("token acquisition failed (%s, status %d, %s): %v", e.Class, e.Status, e.Code, e.Err)
	}
	return fmt.Sprintf("token acquisition failed (%s): %v", e.Class, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Permanent reports whether retrying can help.
func (e *TokenError) Permanent() bool {
	return e.Class != Transient
}

// Hint is a short operator-facing remediation.
func (e *TokenError) Hint() string {
	switch e.Class {
	case InvalidCredentials:
		return "check GRAPH_CLIENT_ID and GRAPH_CLIENT_SECRET, and that the secret has not expired"
	case InvalidRequest:
		return "check GRAPH_TENANT_ID and GRAPH_SCOPE"
	case InsufficientPermission:
		return "grant the Mail.Send application permission and admin consent"
	default:
		return "the identity provider is unreachable, retry later"
	}
}

// classifyTokenError maps an oauth2 failure onto a TokenErrorClass. Anything
// that is not an HTTP response from the token endpoint counts as transient.
func classifyTokenError(err error) *TokenError {
	var te *TokenError
	if errors.As(err, &te) {
		return te
	}

	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return &TokenError{Class: Transient, Err: err}
	}

	status := re.Response.StatusCode
	out := &TokenError{Status: status, Code: re.ErrorCode, Err: err}

	switch {
	case status >= 500:
		out.Class = Transient
	case status == http.StatusUnauthorized:
		out.Class = InvalidCredentials
	case status == http.StatusForbidden:
		out.Class = InsufficientPermission
	case status == http.StatusBadRequest && (re.ErrorCode == "invalid_client" || re.ErrorCode == "unauthorized_client"):
		out.Class = InvalidCredentials
	case status == http.StatusBadRequest && re.ErrorCode == "invalid_scope":
		out.Class = InsufficientPermission
	default:
		out.Class = InvalidRequest
	}
	return out
}
