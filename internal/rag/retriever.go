// Package rag retrieves code chunks relevant to a question and turns them
// into grounded chat prompts.
package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"axon/internal/chunker"
	"axon/internal/store"
)

const (
	// DefaultTopK is the result count used when the caller asks for zero.
	DefaultTopK = 10
	// MaxTopK caps how many results a single search may request.
	MaxTopK = 100
)

// Result is a retrieved chunk with its similarity score in (0, 1].
type Result struct {
	Chunk chunker.Chunk
	Score float64
}

// QueryEmbedder is the embedding surface retrieval needs.
type QueryEmbedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// Retriever embeds queries and pulls the closest chunks out of the store.
type Retriever struct {
	store store.ChunkStore
	embed QueryEmbedder
	log   zerolog.Logger
}

// NewRetriever creates a retriever over the given store and embedder.
func NewRetriever(st store.ChunkStore, emb QueryEmbedder, log zerolog.Logger) *Retriever {
	return &Retriever{store: st, embed: emb, log: log}
}

// Search embeds the query and returns the closest chunks as scored results.
// k is clamped to at most MaxTopK; zero or negative means DefaultTopK.
// Distances become scores via 1/(1+distance), so closer is higher.
func (r *Retriever) Search(ctx context.Context, query string, k int, filter store.SearchFilter) ([]Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}
	r.log.Info().Str("query", query).Int("top_k", k).Msg("searching")

	vec, err := r.embed.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.store.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Chunk: h.Chunk, Score: 1 / (1 + h.Distance)}
	}
	r.log.Info().Int("results", len(results)).Msg("search complete")
	return results, nil
}
