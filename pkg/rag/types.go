package rag

import "github.com/pgvector/pgvector-go"

// Source is a raw document to ingest.
type Source struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// Document is a stored row. ID is assigned by the store on insert and is zero before that.
type Document struct {
	ID        int64
	Title     string
	Content   string
	Embedding pgvector.Vector
}

// Result is a retrieved document with its cosine similarity to the query.
type Result struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Answer is the outcome of a retrieval-augmented generation run.
type Answer struct {
	Query    string   `json:"query"`
	Prompt   string   `json:"prompt"`
	Response string   `json:"response"`
	Results  []Result `json:"results"`
}
