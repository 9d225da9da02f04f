package embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/openai"
)

type ProviderConfig struct {
	Model   string
	Token   string
	BaseURL string // OpenAI-compatible endpoint
}

// OpenAI is the concrete embedding provider behind the Provider
// interface.
type OpenAI struct {
	config ProviderConfig
	llm    *openai.LLM
}

func NewOpenAI(config ProviderConfig) (*OpenAI, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}

	opts := []openai.Option{
		openai.WithEmbeddingModel(config.Model),
	}
	if config.Token != "" {
		opts = append(opts, openai.WithToken(config.Token))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	return &OpenAI{config: config, llm: llm}, nil
}

// CreateEmbeddings returns one vector per input text, same order.
// Quota and rate failures are mapped to ErrCapacityExceeded so the
// batcher can stop instead of retrying against an exhausted budget.
func (o *OpenAI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := o.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		if isCapacityError(err) {
			return nil, fmt.Errorf("%s: %w", o.config.Model, ErrCapacityExceeded)
		}
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	return vectors, nil
}

func isCapacityError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "quota", "insufficient_quota"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
