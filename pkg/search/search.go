package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"pdfchat/internal/models"
	"pdfchat/internal/types"
)

// Searcher ranks a session's stored chunks against a query vector by
// cosine similarity.
type Searcher struct {
	store  types.Store
	logger zerolog.Logger
}

func New(store types.Store, logger zerolog.Logger) *Searcher {
	return &Searcher{
		store:  store,
		logger: logger,
	}
}

// Search returns at most topK results with similarity strictly above
// threshold, ordered best first. Ties fall back to chunk order, which
// keeps results deterministic. An empty session yields an empty result,
// not an error.
func (s *Searcher) Search(ctx context.Context, sessionID string, query []float32, threshold float64, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	docs, err := s.store.SelectBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session documents: %w", err)
	}

	results := make([]models.SearchResult, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) != len(query) {
			// a mismatched vector can't score meaningfully; skip it
			// rather than fail the whole search
			s.logger.Warn().
				Str("session_id", sessionID).
				Int("chunk_index", doc.Ordinal).
				Int("stored_dim", len(doc.Embedding)).
				Int("query_dim", len(query)).
				Msg("skipping chunk with mismatched embedding dimension")
			continue
		}

		similarity := Cosine(query, doc.Embedding)
		if similarity <= threshold {
			continue
		}
		results = append(results, models.SearchResult{
			Document:   doc,
			Similarity: similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Document.Ordinal < results[j].Document.Ordinal
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Cosine computes the cosine similarity of two equal-length vectors. A
// zero vector on either side scores 0, never NaN.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
