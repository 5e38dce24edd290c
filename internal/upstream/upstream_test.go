package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/technoflow/types"
)

func TestDoJSON_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      types.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, types.ErrAuthentication, false},
		{"forbidden", http.StatusForbidden, types.ErrAuthentication, false},
		{"rate limited", http.StatusTooManyRequests, types.ErrRateLimited, true},
		{"internal error", http.StatusInternalServerError, types.ErrUpstreamError, true},
		{"bad gateway", http.StatusBadGateway, types.ErrUpstreamError, true},
		{"unavailable", http.StatusServiceUnavailable, types.ErrUpstreamError, true},
		{"bad request", http.StatusBadRequest, types.ErrUpstreamError, false},
		{"not found", http.StatusNotFound, types.ErrUpstreamError, false},
		{"unprocessable", http.StatusUnprocessableEntity, types.ErrUpstreamError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":"nope"}`)
			}))
			defer srv.Close()

			var out map[string]any
			err := DoJSON(context.Background(), srv.Client(), "udio", http.MethodPost, srv.URL, nil, map[string]string{"prompt": "x"}, &out)
			require.Error(t, err)

			apiErr, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.retryable, apiErr.Retryable)
			assert.Equal(t, tt.status, apiErr.HTTPStatus)
			assert.Equal(t, "udio", apiErr.Provider)
			assert.Contains(t, apiErr.Message, `{"error":"nope"}`)
		})
	}
}

func TestDoJSON_SendsJSONAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"prompt":"acid"}`, string(body))
		fmt.Fprint(w, `{"job_ids":["a","b"]}`)
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer k")
	var out struct {
		JobIDs []string `json:"job_ids"`
	}
	err := DoJSON(context.Background(), srv.Client(), "generic", http.MethodPost, srv.URL, header, map[string]string{"prompt": "acid"}, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.JobIDs)
}

func TestDoJSON_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs": [`)
	}))
	defer srv.Close()

	var out map[string]any
	err := DoJSON(context.Background(), srv.Client(), "generic", http.MethodGet, srv.URL, nil, nil, &out)
	require.Error(t, err)
	apiErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUpstreamError, apiErr.Code)
	assert.False(t, apiErr.Retryable)
	assert.Equal(t, http.StatusOK, apiErr.HTTPStatus)
}

func TestDoJSON_OversizedBodyIsCut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"padding":"`)
		fmt.Fprint(w, strings.Repeat("x", maxResponseBody))
		fmt.Fprint(w, `"}`)
	}))
	defer srv.Close()

	var out map[string]any
	err := DoJSON(context.Background(), srv.Client(), "generic", http.MethodGet, srv.URL, nil, nil, &out)
	require.Error(t, err)
	apiErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUpstreamError, apiErr.Code)
}

func TestDoJSON_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := DoJSON(context.Background(), http.DefaultClient, "suno", http.MethodGet, url, nil, nil, nil)
	require.Error(t, err)
	apiErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUpstreamError, apiErr.Code)
	assert.True(t, apiErr.Retryable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = DoJSON(ctx, http.DefaultClient, "suno", http.MethodGet, url, nil, nil, nil)
	apiErr, ok = types.AsError(err)
	require.True(t, ok)
	assert.False(t, apiErr.Retryable)
}
