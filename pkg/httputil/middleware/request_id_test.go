package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edgeflare/pgrag/pkg/httputil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	t.Run("should generate a new request ID if none exists", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Context().Value(httputil.RequestIDCtxKey).(string)
			_, err := uuid.Parse(reqID)
			assert.NoError(t, err, "Request ID should be a valid UUID")
		})

		w := httptest.NewRecorder()
		RequestID(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example.com/foo", nil))

		_, err := uuid.Parse(w.Result().Header.Get(RequestIDHeader))
		assert.NoError(t, err, "Response header X-Request-Id should be a valid UUID")
	})

	t.Run("should preserve existing request ID from context", func(t *testing.T) {
		existingReqID := uuid.New().String()

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, existingReqID, r.Context().Value(httputil.RequestIDCtxKey))
		})

		ctx := context.WithValue(context.Background(), httputil.RequestIDCtxKey, existingReqID)
		req := httptest.NewRequest(http.MethodGet, "http://example.com/foo", nil).WithContext(ctx)
		w := httptest.NewRecorder()
		RequestID(handler).ServeHTTP(w, req)

		assert.Equal(t, existingReqID, w.Result().Header.Get(RequestIDHeader))
	})

	t.Run("should honor a valid incoming header", func(t *testing.T) {
		incoming := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "http://example.com/foo", nil)
		req.Header.Set(RequestIDHeader, incoming)
		w := httptest.NewRecorder()
		RequestID(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, incoming, w.Result().Header.Get(RequestIDHeader))
	})

	t.Run("should replace an invalid incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/foo", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")
		w := httptest.NewRecorder()
		RequestID(http.NotFoundHandler()).ServeHTTP(w, req)

		got := w.Result().Header.Get(RequestIDHeader)
		assert.NotEqual(t, "not-a-uuid", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})

	t.Run("should handle multiple requests independently", func(t *testing.T) {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.Context().Value(httputil.RequestIDCtxKey).(string)))
		}))

		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "http://example.com/foo1", nil))
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "http://example.com/foo2", nil))

		assert.NotEqual(t, w1.Body.String(), w2.Body.String(), "Request IDs should be different for different requests")
	})
}
