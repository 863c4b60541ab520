package breeze

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"breeze-trading-bot/internal/api"
)

func TestRemedyFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Remedy
	}{
		{"nil", nil, RemedyUnknown},
		{"invalid credentials", &AuthError{Kind: InvalidCredentials}, FixCredentials},
		{"provider unavailable", &AuthError{Kind: ProviderUnavailable}, RetryLater},
		{"malformed auth response", &AuthError{Kind: MalformedResponse}, RemedyUnknown},
		{"not authenticated", ErrNotAuthenticated, Reauthenticate},
		{"session expired", ErrSessionExpired, Reauthenticate},
		{"wrapped session expired", fmt.Errorf("balance: %w", ErrSessionExpired), Reauthenticate},
		{"transport", &TransportError{Op: "portfolio", Kind: Timeout}, RetryLater},
		{"logout", &LogoutError{Err: errors.New("boom")}, RetryLater},
		{"api error", &APIError{Op: "funds", Code: 400, Message: "bad"}, RemedyUnknown},
		{"foreign error", errors.New("something else"), RemedyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemedyFor(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		"breeze: authentication failed (invalid credentials): HTTP 401: Public Key does not exist.",
		(&AuthError{Kind: InvalidCredentials, Message: "HTTP 401: Public Key does not exist."}).Error())
	assert.Equal(t,
		"breeze: funds: api error 400: Invalid stock code",
		(&APIError{Op: "funds", Code: 400, Message: "Invalid stock code"}).Error())
	assert.Equal(t,
		"breeze: portfolio: timeout: context deadline exceeded",
		(&TransportError{Op: "portfolio", Kind: Timeout, Err: context.DeadlineExceeded}).Error())
	assert.Contains(t, (&LogoutError{Err: errors.New("HTTP 500")}).Error(), "remote logout failed")
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	assert.ErrorIs(t, &AuthError{Kind: ProviderUnavailable, Err: cause}, cause)
	assert.ErrorIs(t, &TransportError{Kind: ConnectionFailed, Err: cause}, cause)
	assert.ErrorIs(t, &LogoutError{Err: &TransportError{Kind: ConnectionFailed, Err: cause}}, cause)
}

func TestTransportFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want TransportErrorKind
	}{
		{"request timeout", &api.RequestError{Kind: api.FailureTimeout, Err: context.DeadlineExceeded}, Timeout},
		{"request connection", &api.RequestError{Kind: api.FailureConnection, Err: errors.New("refused")}, ConnectionFailed},
		{"bare deadline", context.DeadlineExceeded, Timeout},
		{"other", errors.New("reset by peer"), ConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var te *TransportError
			assert.ErrorAs(t, transportFailure("funds", tt.err), &te)
			assert.Equal(t, tt.want, te.Kind)
			assert.Equal(t, "funds", te.Op)
		})
	}
}
