package breeze

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"breeze-trading-bot/internal/api"
	"breeze-trading-bot/internal/types"
)

const testToken = "c2Vzc2lvbi10b2tlbi0x"

var testCreds = types.Credentials{
	APIKey:       "test-app-key",
	SecretKey:    "test-secret",
	SessionToken: "12345678",
	AccountID:    "ACC1",
}

type recordedRequest struct {
	Method string
	Header http.Header
	Query  url.Values
	Body   []byte
}

// fakeBreeze is an httptest server standing in for the Breeze API. Every
// path counts its calls so tests can assert that no request was made.
type fakeBreeze struct {
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
	last     map[string]recordedRequest
}

func newFakeBreeze(t *testing.T) *fakeBreeze {
	t.Helper()
	f := &fakeBreeze{
		handlers: map[string]http.HandlerFunc{},
		calls:    map[string]int{},
		last:     map[string]recordedRequest{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBreeze) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.last[r.URL.Path] = recordedRequest{
		Method: r.Method,
		Header: r.Header.Clone(),
		Query:  r.URL.Query(),
		Body:   body,
	}
	h := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeBreeze) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// respond serves testdata/<fixture> with the given HTTP status on path.
func (f *fakeBreeze) respond(t *testing.T, path string, status int, fixture string) {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", fixture))
	require.NoError(t, err)
	f.handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	})
}

func (f *fakeBreeze) raw(path string, status int, contentType, body string) {
	f.handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (f *fakeBreeze) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeBreeze) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBreeze) lastRequest(path string) recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last[path]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 11, 9, 15, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryStore is a SessionStore backed by a map.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]types.Session
	deleted  []string

	// onDelete, when set, runs before each Delete takes effect.
	onDelete func(key string)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]types.Session{}}
}

func (m *memoryStore) Load(key string) (*types.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (m *memoryStore) Save(key string, s *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = *s
	return nil
}

func (m *memoryStore) Delete(key string) error {
	if m.onDelete != nil {
		m.onDelete(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func newTestManager(f *fakeBreeze, clock *fakeClock, opts ...Option) *SessionManager {
	httpClient := api.NewClient(
		api.WithBaseURL(f.srv.URL),
		api.WithTimeout(2*time.Second),
	)
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewSessionManager(httpClient, opts...)
}

// authenticated returns a manager holding a session issued by f.
func authenticated(t *testing.T, f *fakeBreeze, clock *fakeClock, opts ...Option) *SessionManager {
	t.Helper()
	f.respond(t, "/customerdetails", http.StatusOK, "session_ok.json")
	m := newTestManager(f, clock, opts...)
	_, err := m.Authenticate(context.Background(), testCreds)
	require.NoError(t, err)
	return m
}
