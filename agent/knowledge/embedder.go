package knowledge

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
)

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type OpenAIOption func(*OpenAIEmbedder)

func WithEmbeddingModel(model string) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if model != "" {
			e.model = model
		}
	}
}

func WithBatchSize(size int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openaisdk.Client
	model     string
	batchSize int
}

var _ Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(client *openaisdk.Client, opts ...OpenAIOption) *OpenAIEmbedder {
	e := &OpenAIEmbedder{
		client:    client,
		model:     openaisdk.EmbeddingModelTextEmbedding3Small,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+e.batchSize, len(texts))

		resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
			Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts[start:end]},
			Model: e.model,
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors", start, end, len(resp.Data))
		}

		batch := make([][]float32, end-start)
		for _, d := range resp.Data {
			if d.Index < 0 || int(d.Index) >= len(batch) {
				return nil, fmt.Errorf("embed batch %d-%d: index %d out of range", start, end, d.Index)
			}
			vec := make([]float32, len(d.Embedding))
			for i, v := range d.Embedding {
				vec[i] = float32(v)
			}
			batch[d.Index] = vec
		}
		out = append(out, batch...)
	}
	return out, nil
}
