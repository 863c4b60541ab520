package breeze

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"breeze-trading-bot/internal/api"
)

var validate = validator.New()

// envelope is the provider's response wrapper:
//
//	{"Status": 200, "Success": <payload>, "Error": null}
//
// Status is required. Unknown fields are ignored.
type envelope struct {
	Status  *int            `json:"Status"`
	Success json.RawMessage `json:"Success"`
	Error   json.RawMessage `json:"Error"`
}

var errMissingStatus = errors.New("response envelope has no Status field")

func decodeEnvelope(resp *api.Response) (*envelope, error) {
	var env envelope
	if err := resp.ParseJSON(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Status == nil {
		return nil, errMissingStatus
	}
	return &env, nil
}

func (e *envelope) ok() bool {
	return *e.Status == http.StatusOK
}

// message returns the provider error text. Error is usually a string but
// some endpoints send an object.
func (e *envelope) message() string {
	raw := bytes.TrimSpace(e.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (e *envelope) hasPayload() bool {
	raw := bytes.TrimSpace(e.Success)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// decodeObject decodes and validates a single object payload.
func decodeObject[T any](env *envelope) (*T, error) {
	if !env.hasPayload() {
		return nil, errors.New("response has no Success payload")
	}
	var out T
	if err := json.Unmarshal(env.Success, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}
	return &out, nil
}

// decodeList decodes and validates a list payload. A null or absent payload
// is an empty list.
func decodeList[T any](env *envelope) ([]T, error) {
	out := []T{}
	if !env.hasPayload() {
		return out, nil
	}
	if err := json.Unmarshal(env.Success, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	for i := range out {
		if err := validate.Struct(&out[i]); err != nil {
			return nil, fmt.Errorf("validate payload item %d: %w", i, err)
		}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

var sessionExpiredMessages = []string{
	"session key is expired",
	"session expired",
	"invalid session",
	"session token expired",
}

// isSessionExpired recognises the provider's ways of rejecting a token.
func isSessionExpired(status int, message string) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	msg := strings.ToLower(message)
	for _, m := range sessionExpiredMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// isNoData recognises the provider's "empty result" error, which list
// endpoints send instead of an empty array.
func isNoData(message string) bool {
	return strings.EqualFold(strings.TrimSuffix(strings.TrimSpace(message), "."), "no data found")
}
