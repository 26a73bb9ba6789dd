package embedder

import "context"

// Embedder converts text into dense vectors.
type Embedder interface {
	// Embed returns one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle embeds a single text and returns the embedding vector.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Model returns the configured model name.
	Model() string
}
