package rag

import "errors"

var (
	// ErrServiceUnavailable indicates the embedding service, the generation service or
	// the database could not be reached, or the service answered with an error status.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrMalformedResponse indicates a service payload lacked an expected field or had the wrong type.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrStore indicates a statement or transaction failure in the document store.
	ErrStore = errors.New("document store error")

	// ErrDimensionMismatch indicates an embedding whose length differs from the table's vector dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyInput indicates an empty query, prompt or document content.
	ErrEmptyInput = errors.New("empty input")
)
