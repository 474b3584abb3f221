/*
Package rag implements Retrieval Augmented Generation (RAG) over a PostgreSQL
table with the pgvector extension and an Ollama-compatible model-serving API.

Ingestion embeds each source document and inserts all rows in one transaction.
Querying embeds the question, ranks stored documents by cosine similarity, builds
a context block from the top matches and asks the generation model to answer.
*/
package rag
