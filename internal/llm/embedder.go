package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/xaenox/outreach-router/internal/errs"
)

// Embedder turns text into a fixed-length vector. Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// OpenAIEmbedder calls the embeddings endpoint of an OpenAI-compatible API.
type OpenAIEmbedder struct {
	client    *openai.Client
	breaker   *Breaker
	model     string
	dimension int
}

var _ Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(cfg ClientConfig, model string, dimension int, breaker *Breaker) *OpenAIEmbedder {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(oc),
		breaker:   breaker,
		model:     model,
		dimension: dimension,
	}
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp openai.EmbeddingResponse
	err := e.breaker.Do(func() error {
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: e.dimension,
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create embeddings: %w", errs.ErrProvider, err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", errs.ErrSchema)
	}
	vec := resp.Data[0].Embedding
	if len(vec) != e.dimension {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, want %d", errs.ErrSchema, len(vec), e.dimension)
	}
	return vec, nil
}
