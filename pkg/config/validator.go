package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Embedding config
	if c.Embedding.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Embedding.MinDelayMS < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.min_delay_ms",
			Message: "min_delay_ms cannot be negative",
		})
	}

	if c.Embedding.MaxChunksPerCall < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.max_chunks_per_call",
			Message: "max_chunks_per_call must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Chunker config
	if c.Chunker.MaxChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.max_chunk_size",
			Message: "max_chunk_size must be positive",
		})
	}

	if c.Chunker.OverlapSize < 0 || c.Chunker.OverlapSize >= c.Chunker.MaxChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.overlap_size",
			Message: "overlap_size must be non-negative and less than max_chunk_size",
		})
	}

	// Validate Search config
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "search.threshold",
			Message: "threshold must be between -1 and 1",
		})
	}

	if c.Search.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.top_k",
			Message: "top_k must be positive",
		})
	}

	// Validate Session config
	if c.Session.RetentionHours < 1 {
		errors = append(errors, ValidationError{
			Field:   "session.retention_hours",
			Message: "retention_hours must be positive",
		})
	}

	if c.Session.SweepIntervalMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "session.sweep_interval_minutes",
			Message: "sweep_interval_minutes must be positive",
		})
	}

	return errors
}
