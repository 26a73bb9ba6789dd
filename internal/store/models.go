package store

import "axon/internal/chunker"

// MetaEmbeddingModel is the meta key recording which embedding model produced
// the stored vectors. Search and ingestion refuse to mix models.
const MetaEmbeddingModel = "embedding_model"

// SearchFilter narrows search results to specific repositories or languages.
// Empty slices match everything.
type SearchFilter struct {
	Repos     []string
	Languages []string
}

// SearchResult is a stored chunk with its distance to the query embedding.
type SearchResult struct {
	Chunk    chunker.Chunk
	Distance float64
}

// Stats reports how many chunks are stored, broken down by repository and language.
type Stats struct {
	TotalChunks int
	ByRepo      map[string]int
	ByLanguage  map[string]int
}
