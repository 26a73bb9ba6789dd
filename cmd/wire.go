package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"axon/internal/config"
	"axon/internal/embedder"
	"axon/internal/gitrepo"
	"axon/internal/ingest"
	"axon/internal/llm"
	"axon/internal/state"
	"axon/internal/store"

	"github.com/rs/zerolog"
)

// loadSettings reads configuration from the environment and applies
// command-line overrides on top.
func loadSettings() (*config.Settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagConfig != "" {
		cfg.ReposConfigPath = flagConfig
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagState != "" {
		cfg.StatePath = flagState
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Settings, log zerolog.Logger) (store.ChunkStore, error) {
	switch cfg.StoreBackend {
	case "postgres":
		return store.OpenPostgres(ctx, cfg.DatabaseURL, cfg.EmbeddingDim, log)
	default:
		// Ensure the database directory exists.
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		return store.Open(cfg.DBPath, cfg.EmbeddingDim, log)
	}
}

func newEmbedder(cfg *config.Settings) (embedder.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai embedding provider")
		}
		return embedder.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	default:
		return embedder.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel), nil
	}
}

func newChat(cfg *config.Settings, model string) (llm.Chat, error) {
	if model == "" {
		model = cfg.ChatModel
	}
	if llm.IsOpenAIModel(model) {
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for model %q", model)
		}
		return llm.NewOpenAIChat(cfg.OpenAIAPIKey, model), nil
	}
	return llm.NewOllamaChat(cfg.OllamaURL, model), nil
}

func newService(cfg *config.Settings, st store.ChunkStore, emb embedder.Embedder, log zerolog.Logger) *ingest.Service {
	mgr := gitrepo.NewManager(cfg.ReposBasePath, cfg.GitToken, log)
	acquire := func(ctx context.Context, rc config.Repository) (ingest.Workspace, error) {
		ws, err := mgr.Acquire(ctx, rc)
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
	states := state.NewStore(cfg.StatePath)
	return ingest.NewService(cfg, acquire, st, emb, states, log)
}

// splitList parses a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
