package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/models"
	"pdfchat/pkg/store"
)

func makeDocs(n, dim int) []models.StoredDocument {
	docs := make([]models.StoredDocument, n)
	for i := range docs {
		docs[i] = models.StoredDocument{
			Chunk: models.Chunk{
				Ordinal: i,
				Content: "chunk content",
			},
			Embedding:   make([]float32, dim),
			Filename:    "report.pdf",
			TotalChunks: n,
		}
	}
	return docs
}

func TestMemory_InsertAndSelect(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(4)

	require.NoError(t, s.Insert(ctx, "sess-1", makeDocs(3, 4)))

	docs, err := s.SelectBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, docs, 3)

	for i, doc := range docs {
		assert.Equal(t, i, doc.Ordinal)
		assert.Equal(t, "sess-1", doc.SessionID)
		assert.NotEmpty(t, doc.ID)
		assert.False(t, doc.CreatedAt.IsZero())
	}
}

func TestMemory_InsertRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(4)

	docs := makeDocs(3, 4)
	docs[1].Embedding = make([]float32, 8)

	err := s.Insert(ctx, "sess-1", docs)
	require.ErrorIs(t, err, store.ErrDimensionMismatch)

	// the batch failed as a unit: nothing was written
	stored, err := s.SelectBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestMemory_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(4)

	require.NoError(t, s.Insert(ctx, "sess-a", makeDocs(2, 4)))
	require.NoError(t, s.Insert(ctx, "sess-b", makeDocs(5, 4)))

	a, err := s.SelectBySession(ctx, "sess-a")
	require.NoError(t, err)
	assert.Len(t, a, 2)

	deleted, err := s.DeleteBySession(ctx, "sess-a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	b, err := s.SelectBySession(ctx, "sess-b")
	require.NoError(t, err)
	assert.Len(t, b, 5)
}

func TestMemory_DeleteBySessionIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(4)

	require.NoError(t, s.Insert(ctx, "sess-1", makeDocs(3, 4)))

	deleted, err := s.DeleteBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	deleted, err = s.DeleteBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)

	deleted, err = s.DeleteBySession(ctx, "never-existed")
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)
}

func TestMemory_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(4)
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	old := makeDocs(2, 4)
	for i := range old {
		old[i].CreatedAt = cutoff.Add(-time.Hour)
	}
	atCutoff := makeDocs(1, 4)
	atCutoff[0].CreatedAt = cutoff
	fresh := makeDocs(2, 4)
	for i := range fresh {
		fresh[i].CreatedAt = cutoff.Add(time.Hour)
	}

	require.NoError(t, s.Insert(ctx, "sess-old", old))
	require.NoError(t, s.Insert(ctx, "sess-edge", atCutoff))
	require.NoError(t, s.Insert(ctx, "sess-fresh", fresh))

	result, err := s.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)

	assert.EqualValues(t, 2, result.Deleted)
	assert.Equal(t, []string{"sess-old"}, result.Sessions)

	// records created exactly at the cutoff are retained
	edge, err := s.SelectBySession(ctx, "sess-edge")
	require.NoError(t, err)
	assert.Len(t, edge, 1)

	remaining, err := s.SelectBySession(ctx, "sess-old")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestMemory_DeleteOlderThanSpansSessions(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(4)
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for _, sessionID := range []string{"s1", "s2", "s3"} {
		docs := makeDocs(2, 4)
		docs[0].CreatedAt = cutoff.Add(-time.Minute)
		docs[1].CreatedAt = cutoff.Add(time.Minute)
		require.NoError(t, s.Insert(ctx, sessionID, docs))
	}

	result, err := s.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)

	assert.EqualValues(t, 3, result.Deleted)
	assert.Equal(t, []string{"s1", "s2", "s3"}, result.Sessions)

	for _, sessionID := range []string{"s1", "s2", "s3"} {
		docs, err := s.SelectBySession(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	}
}
