package embedder

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"
)

// openAITokenLimit is the per-input token ceiling for OpenAI embedding models.
const openAITokenLimit = 8000

// OpenAIEmbedder calls the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client  openai.Client
	model   string
	encoder *tiktoken.Tiktoken
}

// NewOpenAIEmbedder creates an embedder using the given API key and model.
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding: %w", err)
	}
	return &OpenAIEmbedder{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		encoder: encoder,
	}, nil
}

// Model returns the configured model name.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed sends a batch of texts to OpenAI and returns their embeddings.
// Inputs longer than the model's token limit are truncated.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	clamped := make([]string, len(texts))
	for i, t := range texts {
		clamped[i] = e.truncate(t)
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: clamped},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// EmbedSingle embeds a single text and returns the embedding vector.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	results, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// truncate cuts text down to the embedding token limit.
func (e *OpenAIEmbedder) truncate(text string) string {
	tokens := e.encoder.Encode(text, nil, nil)
	if len(tokens) <= openAITokenLimit {
		return text
	}
	return e.encoder.Decode(tokens[:openAITokenLimit])
}
