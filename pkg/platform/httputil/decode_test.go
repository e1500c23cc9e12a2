package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "confide/pkg/domain-errors"
)

type testRequest struct {
	Action string `json:"action"`
}

func TestDecodeJSONLenient(t *testing.T) {
	t.Run("valid body decodes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"comment"}`))
		got, err := DecodeJSONLenient[testRequest](req)
		require.NoError(t, err)
		assert.Equal(t, "comment", got.Action)
	})

	t.Run("malformed body yields zero value and error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":`))
		got, err := DecodeJSONLenient[testRequest](req)
		assert.Error(t, err)
		assert.Equal(t, testRequest{}, got)
	})

	t.Run("wrong field type yields zero value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":42}`))
		got, err := DecodeJSONLenient[testRequest](req)
		assert.Error(t, err)
		assert.Empty(t, got.Action)
	})

	t.Run("empty body is not an error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		got, err := DecodeJSONLenient[testRequest](req)
		require.NoError(t, err)
		assert.Empty(t, got.Action)
	})

	t.Run("oversized body yields zero value", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"action":"`+strings.Repeat("a", 64)+`"}`)))
		req.Body = http.MaxBytesReader(rec, req.Body, 16)
		got, err := DecodeJSONLenient[testRequest](req)
		assert.Error(t, err)
		assert.Empty(t, got.Action)
	})
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"method not allowed", dErrors.New(dErrors.CodeMethodNotAllowed, "Method not allowed"), http.StatusMethodNotAllowed, `{"ok":false,"reason":"Method not allowed"}`},
		{"rate limited", dErrors.New(dErrors.CodeRateLimited, "Please slow down"), http.StatusTooManyRequests, `{"ok":false,"reason":"Please slow down"}`},
		{"code without message", &dErrors.Error{Code: dErrors.CodeUnavailable}, http.StatusServiceUnavailable, `{"ok":false,"reason":"unavailable"}`},
		{"plain error hides detail", assert.AnError, http.StatusInternalServerError, `{"ok":false,"reason":"Internal error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
