package rest

import (
	"errors"
	"net/http"

	"github.com/edgeflare/pgrag/pkg/rag"
)

// statusCode maps pipeline errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, rag.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, rag.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, rag.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, rag.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
