package models

import "time"

// Chunk is one bounded span of a source document. Chunks are write-once:
// they are created in bulk during an upload's embedding pass and never
// mutated afterwards.
type Chunk struct {
	ID        string
	SessionID string
	Ordinal   int // 0-based position within the document
	Content   string
	CreatedAt time.Time
}

// StoredDocument is a chunk together with its embedding and the upload
// metadata needed for display.
type StoredDocument struct {
	Chunk
	Embedding   []float32
	Filename    string
	TotalChunks int
}

// SearchResult pairs a stored document with its cosine similarity to a
// query. Results are transient and never persisted.
type SearchResult struct {
	Document   StoredDocument
	Similarity float64
}

// SweepResult reports the outcome of an age-based bulk delete.
type SweepResult struct {
	Deleted  int64
	Sessions []string
}
