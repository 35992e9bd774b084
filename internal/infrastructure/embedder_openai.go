package infrastructure

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"supportpilot/internal/interfaces"
)

const (
	defaultEmbeddingModel = openai.EmbeddingModelTextEmbedding3Small

	// Embedding calls happen once per inbound message; the limiter keeps a
	// burst of messages from tripping the provider's request quota.
	embedRequestsPerSecond = 5
	embedBurst             = 10
)

// OpenAIEmbedder implements the embedding port.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

func NewOpenAIEmbedder(baseURL, model string) *OpenAIEmbedder {
	options := []option.RequestOption{}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		options = append(options, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = defaultEmbeddingModel
	}

	client := openai.NewClient(options...)
	return &OpenAIEmbedder{
		client:  &client,
		model:   model,
		limiter: rate.NewLimiter(embedRequestsPerSecond, embedBurst),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	embedding := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

var _ interfaces.Embedder = (*OpenAIEmbedder)(nil)
