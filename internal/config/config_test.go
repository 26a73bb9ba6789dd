package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "config/repos.json", cfg.ReposConfigPath)
	assert.Equal(t, "data/repos", cfg.ReposBasePath)
	assert.Equal(t, "data/axon.db", cfg.DBPath)
	assert.Equal(t, filepath.Join("data/repos", "ingestion_state.json"), cfg.StatePath)
	assert.Equal(t, "sqlite", cfg.StoreBackend)

	assert.Equal(t, "ollama", cfg.EmbeddingProvider)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, 768, cfg.EmbeddingDim)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)

	assert.Equal(t, 1000, cfg.MaxChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadOpenAIProviderDefaults(t *testing.T) {
	t.Setenv("AXON_EMBEDDING_PROVIDER", "openai")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 1536, cfg.EmbeddingDim)
}

func TestLoadExplicitModelKept(t *testing.T) {
	t.Setenv("AXON_EMBEDDING_MODEL", "mxbai-embed-large")
	t.Setenv("AXON_EMBEDDING_DIM", "1024")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", cfg.EmbeddingModel)
	assert.Equal(t, 1024, cfg.EmbeddingDim)
}

func TestLoadUnknownProvider(t *testing.T) {
	t.Setenv("AXON_EMBEDDING_PROVIDER", "cohere")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedding provider")
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	t.Setenv("AXON_STORE_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("AXON_DATABASE_URL", "postgres://localhost/axon")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StoreBackend)
}

func TestLoadRejectsBadOverlap(t *testing.T) {
	t.Setenv("AXON_MAX_CHUNK_SIZE", "100")
	t.Setenv("AXON_CHUNK_OVERLAP", "100")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestLoadOpenAIKeyFromUnprefixedEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
}

func writeReposFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repos.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRepositoriesDefaults(t *testing.T) {
	path := writeReposFile(t, `{
		"repositories": [
			{"name": "app", "url": "https://github.com/org/app.git"}
		]
	}`)

	repos, err := LoadRepositories(path)
	require.NoError(t, err)
	require.Len(t, repos, 1)

	r := repos[0]
	assert.Equal(t, "app", r.Name)
	assert.Equal(t, "master", r.Branch)
	assert.True(t, r.Enabled)
	assert.Equal(t, []string{"csharp"}, r.Languages)
	assert.Equal(t, "app", r.LocalPath)
}

func TestLoadRepositoriesExplicitFields(t *testing.T) {
	path := writeReposFile(t, `{
		"repositories": [
			{
				"name": "svc",
				"url": "git@github.com:org/service.git",
				"branch": "main",
				"local_path": "checkouts/svc",
				"enabled": false,
				"languages": ["python", "go"],
				"exclude_patterns": ["*/tests/*"]
			}
		]
	}`)

	repos, err := LoadRepositories(path)
	require.NoError(t, err)
	require.Len(t, repos, 1)

	r := repos[0]
	assert.Equal(t, "main", r.Branch)
	assert.False(t, r.Enabled)
	assert.Equal(t, "checkouts/svc", r.LocalPath)
	assert.Equal(t, []string{"python", "go"}, r.Languages)
	assert.Equal(t, []string{"*/tests/*"}, r.ExcludePatterns)
}

func TestLoadRepositoriesDerivesPathFromSCPURL(t *testing.T) {
	path := writeReposFile(t, `{
		"repositories": [
			{"name": "svc", "url": "git@github.com:org/service.git"}
		]
	}`)

	repos, err := LoadRepositories(path)
	require.NoError(t, err)
	assert.Equal(t, "service", repos[0].LocalPath)
}

func TestLoadRepositoriesValidation(t *testing.T) {
	t.Run("duplicate names", func(t *testing.T) {
		path := writeReposFile(t, `{
			"repositories": [
				{"name": "a", "url": "https://example.com/a.git"},
				{"name": "a", "url": "https://example.com/b.git"}
			]
		}`)
		_, err := LoadRepositories(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("missing name", func(t *testing.T) {
		path := writeReposFile(t, `{"repositories": [{"url": "https://example.com/a.git"}]}`)
		_, err := LoadRepositories(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("missing url", func(t *testing.T) {
		path := writeReposFile(t, `{"repositories": [{"name": "a"}]}`)
		_, err := LoadRepositories(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url is required")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRepositories(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeReposFile(t, `{"repositories": [`)
		_, err := LoadRepositories(path)
		require.Error(t, err)
	})
}

func TestFindRepository(t *testing.T) {
	repos := []Repository{{Name: "a"}, {Name: "b"}}

	r, ok := FindRepository(repos, "b")
	assert.True(t, ok)
	assert.Equal(t, "b", r.Name)

	_, ok = FindRepository(repos, "missing")
	assert.False(t, ok)
}
