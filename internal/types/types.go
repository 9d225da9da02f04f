package types

import (
	"context"
	"time"

	"pdfchat/internal/models"
)

// Core interfaces

// Store is the session-scoped vector store. Insert is atomic per batch;
// deletes are idempotent.
type Store interface {
	Insert(ctx context.Context, sessionID string, docs []models.StoredDocument) error
	SelectBySession(ctx context.Context, sessionID string) ([]models.StoredDocument, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (models.SweepResult, error)
	Close()
}

// Provider turns texts into embedding vectors, one per input text, in
// input order.
type Provider interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}
