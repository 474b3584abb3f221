// Package rest exposes the ingestion and query pipelines over HTTP.
//
//	Method | Path            | Description
//	-------|-----------------|------------------------------------------------
//	GET    | /healthz        | Liveness; 503 when the database does not answer
//	POST   | /api/documents  | Ingest {"documents":[{"title","content"}]} in one batch
//	GET    | /api/search     | Top-k documents for ?q=text&k=5
//	POST   | /api/query      | Retrieval-augmented answer for {"query":"text"}
//
// Errors are JSON {"code","message"}. Empty input and invalid JSON map to 400, a
// wrong embedding dimension to 422, malformed model output to 502 and an
// unreachable model service or database to 503.
//
// Example usage:
//
//	server := rest.NewServer(pipeline, rest.WithLogger(logger), rest.WithPinger(pool))
//	go server.Start(":8080")
//	defer server.Shutdown(ctx)
package rest
