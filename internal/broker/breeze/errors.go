package breeze

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned without any network call when there is
	// no active session.
	ErrNotAuthenticated = errors.New("breeze: not authenticated")
	// ErrSessionExpired is returned when the provider rejected the session
	// token. The local session has been cleared; call Authenticate again.
	ErrSessionExpired = errors.New("breeze: session expired")
)

type AuthErrorKind int

const (
	InvalidCredentials AuthErrorKind = iota + 1
	ProviderUnavailable
	MalformedResponse
)

func (k AuthErrorKind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid credentials"
	case ProviderUnavailable:
		return "provider unavailable"
	case MalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// AuthError is returned by Authenticate.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("breeze: authentication failed (%s)", e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// APIError is a well-formed error response from the provider. It is not
// safe to retry without changing the request.
type APIError struct {
	Op      string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("breeze: %s: api error %d: %s", e.Op, e.Code, e.Message)
}

type TransportErrorKind int

const (
	Timeout TransportErrorKind = iota + 1
	ConnectionFailed
	MalformedBody
)

func (k TransportErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case ConnectionFailed:
		return "connection failed"
	case MalformedBody:
		return "malformed body"
	default:
		return "unknown"
	}
}

// TransportError means the request did not produce a usable provider
// response. Callers may retry it.
type TransportError struct {
	Op   string
	Kind TransportErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("breeze: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// LogoutError reports that remote session termination failed. The local
// session is cleared regardless.
type LogoutError struct {
	Err error
}

func (e *LogoutError) Error() string {
	return fmt.Sprintf("breeze: remote logout failed: %v", e.Err)
}

func (e *LogoutError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transport failure.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Remedy tells a caller what to do about an error.
type Remedy int

const (
	RemedyUnknown Remedy = iota
	FixCredentials
	Reauthenticate
	RetryLater
)

func (r Remedy) String() string {
	switch r {
	case FixCredentials:
		return "fix your credentials"
	case Reauthenticate:
		return "re-authenticate"
	case RetryLater:
		return "try again later"
	default:
		return "inspect the error"
	}
}

// RemedyFor maps err to the action a caller should take.
func RemedyFor(err error) Remedy {
	if err == nil {
		return RemedyUnknown
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case InvalidCredentials:
			return FixCredentials
		case ProviderUnavailable:
			return RetryLater
		default:
			return RemedyUnknown
		}
	}

	switch {
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrSessionExpired):
		return Reauthenticate
	case IsRetryable(err):
		return RetryLater
	}

	var logoutErr *LogoutError
	if errors.As(err, &logoutErr) {
		return RetryLater
	}
	return RemedyUnknown
}
