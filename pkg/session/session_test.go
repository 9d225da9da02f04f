package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/models"
	"pdfchat/pkg/session"
	"pdfchat/pkg/store"
)

func TestNewSession_Unique(t *testing.T) {
	m := session.NewWithConfig(store.NewMemory(4), session.Config{}, zerolog.Nop())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := m.NewSession()
		require.NoError(t, err)
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(4)
	m := session.NewWithConfig(s, session.Config{}, zerolog.Nop())

	id, err := m.NewSession()
	require.NoError(t, err)

	docs := []models.StoredDocument{{
		Chunk:       models.Chunk{Ordinal: 0, Content: "chunk"},
		Embedding:   make([]float32, 4),
		TotalChunks: 1,
	}}
	require.NoError(t, s.Insert(ctx, id, docs))

	assert.EqualValues(t, 1, m.Clear(ctx, id))
	assert.EqualValues(t, 0, m.Clear(ctx, id))

	stored, err := s.SelectBySession(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

// failingStore wraps Memory and fails every delete.
type failingStore struct {
	*store.Memory
}

func (f *failingStore) DeleteBySession(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestClear_SwallowsStorageFailure(t *testing.T) {
	m := session.NewWithConfig(&failingStore{store.NewMemory(4)}, session.Config{}, zerolog.Nop())

	// teardown must never block the action that triggered it
	assert.EqualValues(t, 0, m.Clear(context.Background(), "sess-1"))
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(4)
	m := session.NewWithConfig(s, session.Config{Retention: time.Hour}, zerolog.Nop())

	now := time.Now().UTC()
	expired := []models.StoredDocument{{
		Chunk:       models.Chunk{Ordinal: 0, Content: "old", CreatedAt: now.Add(-2 * time.Hour)},
		Embedding:   make([]float32, 4),
		TotalChunks: 1,
	}}
	fresh := []models.StoredDocument{{
		Chunk:       models.Chunk{Ordinal: 0, Content: "new", CreatedAt: now},
		Embedding:   make([]float32, 4),
		TotalChunks: 1,
	}}
	require.NoError(t, s.Insert(ctx, "sess-old", expired))
	require.NoError(t, s.Insert(ctx, "sess-new", fresh))

	result, err := m.Sweep(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, result.Deleted)
	assert.Equal(t, []string{"sess-old"}, result.Sessions)

	kept, err := s.SelectBySession(ctx, "sess-new")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestSweep_NothingExpired(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(4)
	m := session.NewWithConfig(s, session.Config{Retention: 48 * time.Hour}, zerolog.Nop())

	docs := []models.StoredDocument{{
		Chunk:       models.Chunk{Ordinal: 0, Content: "chunk"},
		Embedding:   make([]float32, 4),
		TotalChunks: 1,
	}}
	require.NoError(t, s.Insert(ctx, "sess-1", docs))

	result, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Deleted)
	assert.Empty(t, result.Sessions)
}

func TestRun_SweepsPeriodically(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := store.NewMemory(4)
	m := session.NewWithConfig(s, session.Config{
		Retention:     time.Hour,
		SweepInterval: 20 * time.Millisecond,
	}, zerolog.Nop())

	docs := []models.StoredDocument{{
		Chunk:       models.Chunk{Ordinal: 0, Content: "old", CreatedAt: time.Now().UTC().Add(-2 * time.Hour)},
		Embedding:   make([]float32, 4),
		TotalChunks: 1,
	}}
	require.NoError(t, s.Insert(ctx, "sess-old", docs))

	go m.Run(ctx)

	assert.Eventually(t, func() bool {
		stored, err := s.SelectBySession(ctx, "sess-old")
		return err == nil && len(stored) == 0
	}, time.Second, 10*time.Millisecond)
}
