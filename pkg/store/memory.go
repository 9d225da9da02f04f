package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdfchat/internal/models"
)

// Memory is a mutex-guarded in-memory store with the same contract as
// PgVector. It backs tests and the no-database development mode.
type Memory struct {
	mu        sync.RWMutex
	vectorDim int
	sessions  map[string][]models.StoredDocument
}

func NewMemory(vectorDim int) *Memory {
	if vectorDim == 0 {
		vectorDim = 1536
	}
	return &Memory{
		vectorDim: vectorDim,
		sessions:  make(map[string][]models.StoredDocument),
	}
}

func (s *Memory) Insert(_ context.Context, sessionID string, docs []models.StoredDocument) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if len(doc.Embedding) != s.vectorDim {
			return fmt.Errorf("chunk %d has dimension %d, store expects %d: %w",
				doc.Ordinal, len(doc.Embedding), s.vectorDim, ErrDimensionMismatch)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.SessionID = sessionID
		s.sessions[sessionID] = append(s.sessions[sessionID], doc)
	}
	return nil
}

func (s *Memory) SelectBySession(_ context.Context, sessionID string) ([]models.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]models.StoredDocument, len(s.sessions[sessionID]))
	copy(docs, s.sessions[sessionID])
	return docs, nil
}

func (s *Memory) DeleteBySession(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := int64(len(s.sessions[sessionID]))
	delete(s.sessions, sessionID)
	return deleted, nil
}

func (s *Memory) DeleteOlderThan(_ context.Context, cutoff time.Time) (models.SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result models.SweepResult
	for sessionID, docs := range s.sessions {
		kept := docs[:0]
		removed := int64(0)
		for _, doc := range docs {
			if doc.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, doc)
		}
		if removed == 0 {
			continue
		}
		result.Deleted += removed
		result.Sessions = append(result.Sessions, sessionID)
		if len(kept) == 0 {
			delete(s.sessions, sessionID)
		} else {
			s.sessions[sessionID] = kept
		}
	}
	sort.Strings(result.Sessions)

	return result, nil
}

func (s *Memory) Close() {}
