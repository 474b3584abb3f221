package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("posts JSON payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "yes", r.Header.Get("X-Custom"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hello", body["prompt"])
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		cfg := DefaultRequestConfig(http.MethodPost, srv.URL)
		cfg.Headers = map[string][]string{"X-Custom": {"yes"}}
		resp, err := Request(ctx, cfg, map[string]string{"prompt": "hello"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	})

	t.Run("non-2xx returns StatusError with response", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		cfg := DefaultRequestConfig(http.MethodPost, srv.URL)
		cfg.RetryEnabled = true
		resp, err := Request(ctx, cfg, []byte(`{}`))
		require.Error(t, err)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
	})

	t.Run("retries server errors and resends the body", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, `{"n":1}`, string(body))
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("done"))
		}))
		defer srv.Close()

		cfg := DefaultRequestConfig(http.MethodPost, srv.URL)
		cfg.RetryEnabled = true
		cfg.MaxRetries = 5
		cfg.InitialBackoff = time.Millisecond
		cfg.MaxBackoff = 5 * time.Millisecond
		resp, err := Request(ctx, cfg, `{"n":1}`)
		require.NoError(t, err)
		assert.Equal(t, "done", string(resp.Body))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("retry disabled makes a single attempt", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := Request(ctx, DefaultRequestConfig(http.MethodGet, srv.URL), nil)
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("connection failure returns nil response", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		resp, err := Request(ctx, DefaultRequestConfig(http.MethodPost, url), []byte(`{}`))
		require.Error(t, err)
		assert.Nil(t, resp)
		var statusErr *StatusError
		assert.False(t, errors.As(err, &statusErr))
	})
}
