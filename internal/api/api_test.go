package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breeze-trading-bot/internal/logger"
)

func TestGetSendsQueryAndHeaders(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/"), WithHeader("User-Agent", "test-agent"))
	resp, err := c.Get(context.Background(), "/funds",
		map[string]string{"from_date": "2024-03-04"},
		map[string]string{"X-SessionToken": "tok"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "/funds", got.URL.Path)
	assert.Equal(t, "2024-03-04", got.URL.Query().Get("from_date"))
	assert.Equal(t, "tok", got.Header.Get("X-SessionToken"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "test-agent", got.Header.Get("User-Agent"))
	assert.Equal(t, resp.RequestID, got.Header.Get(RequestIDHeader))
	assert.NotEmpty(t, resp.RequestID)

	var body struct{ OK bool }
	require.NoError(t, resp.ParseJSON(&body))
	assert.True(t, body.OK)
}

func TestPostEncodesJSON(t *testing.T) {
	var (
		contentType string
		payload     map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	resp, err := NewClient(WithBaseURL(srv.URL)).Post(context.Background(), "/customerdetails",
		map[string]string{"AppKey": "k"}, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, map[string]string{"AppKey": "k"}, payload)
}

func TestNon2xxIsAResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	resp, err := NewClient(WithBaseURL(srv.URL)).Get(context.Background(), "/funds", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "<html>bad gateway</html>", resp.String())
	assert.Error(t, resp.ParseJSON(&struct{}{}))
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, c.Timeout())

	_, err := c.Get(context.Background(), "/slow", nil, nil)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, FailureTimeout, reqErr.Kind)
	assert.Equal(t, http.MethodGet, reqErr.Method)
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(WithBaseURL(url)).Get(context.Background(), "/funds", nil, nil)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, FailureConnection, reqErr.Kind)
	assert.Equal(t, url+"/funds", reqErr.URL)
}

func TestEncodingFailure(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:1"))

	_, err := c.Post(context.Background(), "/x", map[string]any{"ch": make(chan int)}, nil)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, FailureEncoding, reqErr.Kind)
}

func TestDefaults(t *testing.T) {
	c := NewClient(WithTimeout(0), WithBaseURL("https://example.com/api/"))
	assert.Equal(t, DefaultTimeout, c.Timeout())
	assert.Equal(t, "https://example.com/api", c.BaseURL())
}

func TestWithLoggingTimesRequests(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs, slog.LevelDebug)
	t.Cleanup(func() { logger.SetOutput(io.Discard, slog.LevelInfo) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Status":200}`)
	}))
	defer srv.Close()

	resp, err := NewClient(WithBaseURL(srv.URL), WithLogging(true)).Get(context.Background(), "/funds", nil, nil)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, `"msg":"Operation completed"`)
	assert.Contains(t, out, `"operation":"http.GET"`)
	assert.Contains(t, out, `"path":"/funds"`)
	assert.Contains(t, out, `"request_id":"`+resp.RequestID+`"`)
	assert.Contains(t, out, `"status":200`)
}

func TestWithoutLoggingIsQuiet(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs, slog.LevelDebug)
	t.Cleanup(func() { logger.SetOutput(io.Discard, slog.LevelInfo) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Get(context.Background(), "/funds", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, logs.String())
}
