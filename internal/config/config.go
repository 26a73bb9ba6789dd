package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "AXON"

// Settings holds process-wide configuration, populated from the
// environment (prefix AXON_) after loading an optional .env file.
type Settings struct {
	ReposConfigPath string `envconfig:"REPOS_CONFIG" default:"config/repos.json"`
	ReposBasePath   string `envconfig:"REPOS_BASE" default:"data/repos"`
	DBPath          string `envconfig:"DB_PATH" default:"data/axon.db"`
	StatePath       string `envconfig:"STATE_PATH"`

	// StoreBackend selects the chunk store: "sqlite" or "postgres".
	StoreBackend string `envconfig:"STORE_BACKEND" default:"sqlite"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`

	GitToken string `envconfig:"GIT_TOKEN"`

	// EmbeddingProvider selects "ollama" or "openai". Model and
	// dimension default per provider when left empty.
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"ollama"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDim      int    `envconfig:"EMBEDDING_DIM"`
	OllamaURL         string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	ChatModel         string `envconfig:"CHAT_MODEL" default:"qwen2.5-coder:7b"`

	MaxChunkSize int `envconfig:"MAX_CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`
	Workers      int `envconfig:"WORKERS" default:"4"`
}

// Load reads settings from .env (if present) and the environment, then
// fills provider-dependent defaults. Invalid settings abort startup.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	var s Settings
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// The unprefixed variable is the conventional one for OpenAI.
	if s.OpenAIAPIKey == "" {
		s.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	switch s.EmbeddingProvider {
	case "ollama":
		if s.EmbeddingModel == "" {
			s.EmbeddingModel = "nomic-embed-text"
		}
		if s.EmbeddingDim == 0 {
			s.EmbeddingDim = 768
		}
	case "openai":
		if s.EmbeddingModel == "" {
			s.EmbeddingModel = "text-embedding-3-small"
		}
		if s.EmbeddingDim == 0 {
			s.EmbeddingDim = 1536
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", s.EmbeddingProvider)
	}

	switch s.StoreBackend {
	case "sqlite":
	case "postgres":
		if s.DatabaseURL == "" {
			return nil, fmt.Errorf("AXON_DATABASE_URL is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.StoreBackend)
	}

	if s.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", s.MaxChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.MaxChunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, max chunk size), got %d", s.ChunkOverlap)
	}
	if s.Workers <= 0 {
		s.Workers = 1
	}

	if s.StatePath == "" {
		s.StatePath = filepath.Join(s.ReposBasePath, "ingestion_state.json")
	}

	return &s, nil
}
