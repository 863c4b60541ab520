package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetentionDays(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantDays int
		wantOK   bool
	}{
		{"unset", "", 0, false},
		{"valid", "14", 14, true},
		{"surrounding space", " 3 ", 3, true},
		{"not a number", "two weeks", 0, false},
		{"trailing garbage", "7d", 0, false},
		{"zero", "0", 0, false},
		{"negative", "-5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BREEZE_SESSION_LOG_RETENTION_DAYS", tt.value)

			days, ok := retentionDays(context.Background())
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDays, days)
		})
	}
}
