package breeze

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"breeze-trading-bot/internal/api"
	"breeze-trading-bot/internal/interfaces"
	"breeze-trading-bot/internal/logger"
	"breeze-trading-bot/internal/types"
)

const (
	// DefaultBaseURL is the production Breeze API root.
	DefaultBaseURL = "https://api.icicidirect.com/breezeapi/v1"
	// DefaultValidity is the documented lifetime of a Breeze session token.
	DefaultValidity = 24 * time.Hour
)

// Endpoints are the provider paths relative to the base URL.
type Endpoints struct {
	Session   string
	Logout    string
	Funds     string
	Portfolio string
	Orders    string
}

// DefaultEndpoints returns the Breeze v1 paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Session:   "/customerdetails",
		Logout:    "/logout",
		Funds:     "/funds",
		Portfolio: "/portfolio",
		Orders:    "/orders",
	}
}

// SessionStore persists a session between processes. Implementations must
// not return sessions that have already expired.
type SessionStore interface {
	Load(key string) (*types.Session, bool, error)
	Save(key string, s *types.Session) error
	Delete(key string) error
}

// SessionManager owns the single authenticated session of a process.
// It is safe for concurrent use.
type SessionManager struct {
	http      *api.Client
	endpoints Endpoints
	validFor  time.Duration
	now       func() time.Time
	store     SessionStore

	mu      sync.RWMutex
	session *types.Session
	appKey  string
}

var _ interfaces.Sessions = (*SessionManager)(nil)

// Option configures a SessionManager.
type Option func(*SessionManager)

// WithEndpoints overrides the provider paths.
func WithEndpoints(e Endpoints) Option {
	return func(m *SessionManager) { m.endpoints = e }
}

// WithValidity sets how long an issued token is considered valid.
func WithValidity(d time.Duration) Option {
	return func(m *SessionManager) {
		if d > 0 {
			m.validFor = d
		}
	}
}

// WithClock sets the time source used for issuing and expiring sessions.
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) { m.now = now }
}

// WithSessionStore persists sessions to s so a later process can Restore them.
func WithSessionStore(s SessionStore) Option {
	return func(m *SessionManager) { m.store = s }
}

// NewSessionManager returns a manager with no session that talks to the
// provider through httpClient.
func NewSessionManager(httpClient *api.Client, opts ...Option) *SessionManager {
	m := &SessionManager{
		http:      httpClient,
		endpoints: DefaultEndpoints(),
		validFor:  DefaultValidity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type sessionRequest struct {
	AppKey       string `json:"AppKey"`
	AppSecret    string `json:"AppSecret"`
	SessionToken string `json:"SessionToken,omitempty"`
	Source       string `json:"Source"`
}

type sessionPayload struct {
	SessionToken string `json:"session_token"`
	UserID       string `json:"idirect_userid"`
}

// Authenticate exchanges the API key and secret for a session token and
// makes it the current session. Any previous session is replaced.
func (m *SessionManager) Authenticate(ctx context.Context, creds types.Credentials) (*types.Session, error) {
	if err := validate.Struct(creds); err != nil {
		return nil, &AuthError{Kind: InvalidCredentials, Message: "incomplete credentials", Err: err}
	}

	resp, err := m.http.Post(ctx, m.endpoints.Session, sessionRequest{
		AppKey:       creds.APIKey,
		AppSecret:    creds.SecretKey,
		SessionToken: creds.SessionToken,
		Source:       "API",
	}, map[string]string{"X-AppKey": creds.APIKey})
	if err != nil {
		return nil, &AuthError{Kind: ProviderUnavailable, Err: err}
	}

	env, decodeErr := decodeEnvelope(resp)
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if decodeErr == nil && env.message() != "" {
			msg += ": " + env.message()
		}
		return nil, &AuthError{Kind: ProviderUnavailable, Message: msg}
	case resp.StatusCode >= http.StatusBadRequest:
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if decodeErr == nil && env.message() != "" {
			msg += ": " + env.message()
		}
		return nil, &AuthError{Kind: InvalidCredentials, Message: msg}
	case decodeErr != nil:
		return nil, &AuthError{Kind: MalformedResponse, Err: decodeErr}
	case !env.ok():
		return nil, &AuthError{Kind: InvalidCredentials, Message: fmt.Sprintf("status %d: %s", *env.Status, env.message())}
	}

	payload, err := decodeObject[sessionPayload](env)
	if err != nil {
		return nil, &AuthError{Kind: MalformedResponse, Err: err}
	}
	if payload.SessionToken == "" {
		return nil, &AuthError{Kind: MalformedResponse, Message: "response carries no session token"}
	}

	s := &types.Session{
		Token:    payload.SessionToken,
		UserID:   payload.UserID,
		IssuedAt: m.now(),
		ValidFor: m.validFor,
	}

	m.mu.Lock()
	m.session = s
	m.appKey = creds.APIKey
	m.persist(ctx, creds.APIKey, s)
	m.mu.Unlock()

	logger.Session(ctx, "authenticated", "user_id", s.UserID, "expires_at", s.ExpiresAt().Format(time.RFC3339))

	out := *s
	return &out, nil
}

// CurrentSession returns a copy of the active session. An expired session
// is cleared and reported as absent; no provider call is made.
func (m *SessionManager) CurrentSession() (*types.Session, bool) {
	now := m.now()

	m.mu.RLock()
	s := m.session
	m.mu.RUnlock()

	switch s.StateAt(now) {
	case types.Active:
		out := *s
		return &out, true
	case types.Expired:
		if m.clearIf(s) {
			logger.Session(context.Background(), "expired", "user_id", s.UserID)
		}
	}
	return nil, false
}

// State reports the session state without changing it.
func (m *SessionManager) State() types.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.StateAt(m.now())
}

// IsAuthenticated reports whether CurrentSession would return a session.
func (m *SessionManager) IsAuthenticated() bool {
	_, ok := m.CurrentSession()
	return ok
}

// Invalidate clears the session if it still holds token. A session that
// was replaced in the meantime is left alone, in memory and in the store.
func (m *SessionManager) Invalidate(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.Token != token {
		return false
	}
	m.session = nil
	m.forget(m.appKey)
	return true
}

// Logout clears the local session and then terminates it at the provider.
// The local session is gone even when the returned error is non-nil.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	s, appKey := m.session, m.appKey
	if s != nil {
		m.session = nil
		m.forget(appKey)
	}
	m.mu.Unlock()

	if s == nil {
		return nil
	}
	logger.Session(ctx, "logout", "user_id", s.UserID)

	resp, err := m.http.Post(ctx, m.endpoints.Logout, nil, authHeaders(appKey, s.Token))
	if err != nil {
		return &LogoutError{Err: transportFailure("logout", err)}
	}
	env, err := decodeEnvelope(resp)
	if !resp.IsSuccess() {
		msg := http.StatusText(resp.StatusCode)
		if err == nil && env.message() != "" {
			msg = env.message()
		}
		return &LogoutError{Err: &APIError{Op: "logout", Code: resp.StatusCode, Message: msg}}
	}
	if err != nil {
		return &LogoutError{Err: &TransportError{Op: "logout", Kind: MalformedBody, Err: err}}
	}
	if !env.ok() {
		return &LogoutError{Err: &APIError{Op: "logout", Code: *env.Status, Message: env.message()}}
	}
	return nil
}

// Restore loads a still-valid session for creds from the session store.
func (m *SessionManager) Restore(ctx context.Context, creds types.Credentials) (*types.Session, bool) {
	if m.store == nil {
		return nil, false
	}

	m.mu.Lock()
	s, found, err := m.store.Load(storeKey(creds.APIKey))
	if err != nil {
		m.mu.Unlock()
		logger.Warn(ctx, "Failed to load stored session", "error", err)
		return nil, false
	}
	if !found || s.StateAt(m.now()) != types.Active {
		if found {
			m.forget(creds.APIKey)
		}
		m.mu.Unlock()
		return nil, false
	}
	m.session = s
	m.appKey = creds.APIKey
	m.mu.Unlock()

	logger.Session(ctx, "restored", "user_id", s.UserID, "expires_at", s.ExpiresAt().Format(time.RFC3339))
	out := *s
	return &out, true
}

// headers returns the authentication headers for session s.
func (m *SessionManager) headers(s *types.Session) map[string]string {
	m.mu.RLock()
	appKey := m.appKey
	m.mu.RUnlock()
	return authHeaders(appKey, s.Token)
}

func authHeaders(appKey, token string) map[string]string {
	return map[string]string{
		"X-AppKey":       appKey,
		"X-SessionToken": token,
		"Authorization":  "Bearer " + token,
	}
}

func (m *SessionManager) clearIf(s *types.Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != s {
		return false
	}
	m.session = nil
	m.forget(m.appKey)
	return true
}

// persist and forget must run with mu held; store writes then follow the
// order of in-memory session changes.
func (m *SessionManager) persist(ctx context.Context, appKey string, s *types.Session) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(storeKey(appKey), s); err != nil {
		logger.Warn(ctx, "Failed to persist session", "error", err)
	}
}

func (m *SessionManager) forget(appKey string) {
	if m.store == nil || appKey == "" {
		return
	}
	if err := m.store.Delete(storeKey(appKey)); err != nil {
		logger.Warn(context.Background(), "Failed to delete stored session", "error", err)
	}
}

func storeKey(appKey string) string {
	return "breeze/session/" + appKey
}
