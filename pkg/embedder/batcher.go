package embedder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"pdfchat/internal/types"
)

// ErrCapacityExceeded signals the provider rejected a call because its
// quota or request rate is exhausted. The batcher turns it into a partial
// result instead of retrying.
var ErrCapacityExceeded = errors.New("embedding capacity exceeded")

type Config struct {
	BatchSize        int
	MinDelay         time.Duration // enforced wait between consecutive batches
	MaxChunksPerCall int           // provider ceiling on texts per call
	OnBatch          func(processed, total int)
}

// Result carries the vectors embedded so far. When Partial is true the
// provider ran out of capacity mid-run and Vectors covers only the first
// Processed input texts, in input order.
type Result struct {
	Vectors   [][]float32
	Processed int
	Total     int
	Partial   bool
}

// Batcher converts texts into embeddings under the provider's capacity
// budget. Batches run strictly sequentially; the limiter makes the
// outbound request rate a hard ceiling rather than a best effort.
type Batcher struct {
	config   Config
	provider types.Provider
	limiter  *rate.Limiter
}

func NewWithConfig(provider types.Provider, config Config) *Batcher {
	if config.BatchSize == 0 {
		config.BatchSize = 20
	}
	if config.MinDelay == 0 {
		config.MinDelay = time.Second
	}
	if config.MaxChunksPerCall == 0 {
		config.MaxChunksPerCall = 100
	}
	if config.BatchSize > config.MaxChunksPerCall {
		config.BatchSize = config.MaxChunksPerCall
	}

	return &Batcher{
		config:   config,
		provider: provider,
		// burst 1: the first batch goes out immediately, every later
		// batch waits at least MinDelay after the previous one
		limiter: rate.NewLimiter(rate.Every(config.MinDelay), 1),
	}
}

// Embed processes texts in consecutive batches of at most BatchSize.
// On a capacity-exceeded failure it stops immediately: if at least one
// batch already landed the prefix is returned with Partial set and a nil
// error, otherwise the capacity error surfaces. Any other provider
// failure propagates without retry.
func (b *Batcher) Embed(ctx context.Context, texts []string) (Result, error) {
	result := Result{Total: len(texts)}
	if len(texts) == 0 {
		return result, nil
	}

	for start := 0; start < len(texts); start += b.config.BatchSize {
		if err := b.limiter.Wait(ctx); err != nil {
			return result, err
		}

		end := start + b.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := b.provider.CreateEmbeddings(ctx, batch)
		if err != nil {
			if errors.Is(err, ErrCapacityExceeded) {
				if result.Processed > 0 {
					result.Partial = true
					return result, nil
				}
				return result, err
			}
			return result, fmt.Errorf("embedding batch %d: %w", start/b.config.BatchSize+1, err)
		}
		if len(vectors) != len(batch) {
			return result, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(batch))
		}

		result.Vectors = append(result.Vectors, vectors...)
		result.Processed += len(vectors)

		if b.config.OnBatch != nil {
			b.config.OnBatch(result.Processed, result.Total)
		}
	}

	return result, nil
}
