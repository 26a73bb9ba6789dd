// Package ingest orchestrates the incremental indexing of configured
// repositories: it advances each checkout, diffs it against the last
// processed commit, and reconciles the chunk store with what changed.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"axon/internal/chunker"
	"axon/internal/chunker/languages"
	"axon/internal/config"
	"axon/internal/gitrepo"
	"axon/internal/state"
	"axon/internal/store"
)

// Stats counts what one repository run changed.
type Stats struct {
	FilesProcessed int `json:"files_processed"`
	FilesAdded     int `json:"files_added"`
	FilesModified  int `json:"files_modified"`
	FilesDeleted   int `json:"files_deleted"`
	ChunksAdded    int `json:"chunks_added"`
	ChunksDeleted  int `json:"chunks_deleted"`
}

// Result pairs a repository's run statistics with its failure, if any.
type Result struct {
	Stats Stats
	Err   error
}

// Workspace is the checkout surface the service needs. *gitrepo.Workspace
// implements it.
type Workspace interface {
	Head() (string, error)
	Advance(ctx context.Context) (bool, error)
	Changes(oldCommit string, adm *gitrepo.Admission) (gitrepo.Changes, error)
	Read(path string) (string, error)
}

// AcquireFunc obtains the workspace for a repository, cloning when needed.
type AcquireFunc func(ctx context.Context, rc config.Repository) (Workspace, error)

// Service reconciles repositories into the chunk store.
type Service struct {
	cfg       *config.Settings
	acquire   AcquireFunc
	store     store.ChunkStore
	embed     Embedder
	extractor *chunker.Extractor
	states    *state.Store
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Embedder is the embedding surface the service needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// NewService wires a service from its collaborators. The extractor is built
// from the configured chunk sizing with every supported grammar registered.
func NewService(cfg *config.Settings, acquire AcquireFunc, st store.ChunkStore, emb Embedder, states *state.Store, log zerolog.Logger) *Service {
	registry := chunker.NewRegistry()
	languages.RegisterAll(registry)
	return &Service{
		cfg:       cfg,
		acquire:   acquire,
		store:     st,
		embed:     emb,
		extractor: chunker.NewExtractor(registry, cfg.MaxChunkSize, cfg.ChunkOverlap, log),
		states:    states,
		log:       log,
		locks:     map[string]*sync.Mutex{},
	}
}

// ProcessRepository ingests one repository. It skips work when the checkout
// head matches the last processed commit, unless force is set. The returned
// stats reflect this run only.
func (s *Service) ProcessRepository(ctx context.Context, rc config.Repository, force bool) (Stats, error) {
	if err := s.ensureEmbeddingModel(ctx); err != nil {
		return Stats{}, err
	}

	lock := s.lockFor(rc.Name)
	lock.Lock()
	defer lock.Unlock()

	log := s.log.With().Str("repo", rc.Name).Logger()
	log.Info().Msg("processing repository")

	var stats Stats

	ws, err := s.acquire(ctx, rc)
	if err != nil {
		return stats, fmt.Errorf("acquire %s: %w", rc.Name, err)
	}
	if _, err := ws.Advance(ctx); err != nil {
		return stats, err
	}
	head, err := ws.Head()
	if err != nil {
		return stats, err
	}

	st, hasState, err := s.states.Get(rc.Name)
	if err != nil {
		return stats, err
	}
	if !force && hasState && st.LastCommitHash == head {
		log.Info().Msg("no changes, skipping")
		return stats, nil
	}

	oldCommit := ""
	if hasState && !force {
		oldCommit = st.LastCommitHash
	}

	adm := gitrepo.NewAdmission(rc.Languages, rc.ExcludePatterns)
	changes, err := ws.Changes(oldCommit, adm)
	if err != nil {
		return stats, err
	}

	for _, path := range changes.Deleted {
		n, err := s.store.DeleteByPath(ctx, rc.Name, path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to delete chunks")
			continue
		}
		stats.ChunksDeleted += n
		stats.FilesDeleted++
	}

	modified := make(map[string]bool, len(changes.Modified))
	for _, p := range changes.Modified {
		modified[p] = true
	}
	toProcess := make([]string, 0, len(changes.Added)+len(changes.Modified))
	toProcess = append(toProcess, changes.Added...)
	toProcess = append(toProcess, changes.Modified...)

	if err := s.runPipeline(ctx, log, ws, rc.Name, head, toProcess, modified, &stats); err != nil {
		return stats, err
	}

	totalChunks := st.TotalChunks + stats.ChunksAdded - stats.ChunksDeleted
	if totalChunks < 0 {
		totalChunks = 0
	}
	totalFiles := st.TotalFiles + stats.FilesAdded - stats.FilesDeleted
	if totalFiles < 0 {
		totalFiles = 0
	}
	err = s.states.Set(rc.Name, state.RepoState{
		LastCommitHash:  head,
		LastProcessedAt: time.Now().UTC(),
		TotalChunks:     totalChunks,
		TotalFiles:      totalFiles,
	})
	if err != nil {
		return stats, fmt.Errorf("save state: %w", err)
	}

	log.Info().
		Int("files", stats.FilesProcessed).
		Int("chunks_added", stats.ChunksAdded).
		Int("chunks_deleted", stats.ChunksDeleted).
		Msg("repository processed")
	return stats, nil
}

// ProcessAll ingests every enabled repository and returns per-repository
// results keyed by name. One repository failing does not stop the others.
func (s *Service) ProcessAll(ctx context.Context, repos []config.Repository, force bool) map[string]Result {
	runID := uuid.NewString()[:8]
	log := s.log.With().Str("run", runID).Logger()
	log.Info().Int("repos", len(repos)).Bool("force", force).Msg("starting ingestion run")

	results := make(map[string]Result)
	for _, rc := range repos {
		if !rc.Enabled {
			log.Info().Str("repo", rc.Name).Msg("skipping disabled repository")
			continue
		}
		stats, err := s.ProcessRepository(ctx, rc, force)
		if err != nil {
			log.Error().Err(err).Str("repo", rc.Name).Msg("repository failed")
		}
		results[rc.Name] = Result{Stats: stats, Err: err}
	}
	log.Info().Msg("ingestion run complete")
	return results
}

// Reset deletes a repository's chunks and its saved state, so the next run
// reindexes it from scratch. Returns how many chunks were removed.
func (s *Service) Reset(ctx context.Context, repoName string) (int, error) {
	lock := s.lockFor(repoName)
	lock.Lock()
	defer lock.Unlock()

	s.log.Info().Str("repo", repoName).Msg("resetting repository")
	n, err := s.store.DeleteByRepo(ctx, repoName)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.states.Delete(repoName); err != nil {
		return n, fmt.Errorf("delete state: %w", err)
	}
	s.log.Info().Str("repo", repoName).Int("chunks_deleted", n).Msg("reset complete")
	return n, nil
}

// State returns the saved state for one repository.
func (s *Service) State(name string) (state.RepoState, bool, error) {
	return s.states.Get(name)
}

// States returns the saved state of every repository.
func (s *Service) States() (map[string]state.RepoState, error) {
	return s.states.Load()
}

// ensureEmbeddingModel clears the index when the configured embedding model
// no longer matches the one that produced the stored vectors. Mixing vectors
// from different models would make every distance meaningless.
func (s *Service) ensureEmbeddingModel(ctx context.Context) error {
	current := s.embed.Model()
	stored, err := s.store.GetMeta(ctx, store.MetaEmbeddingModel)
	if err != nil {
		return fmt.Errorf("read embedding model marker: %w", err)
	}
	if stored == current {
		return nil
	}
	if stored != "" {
		s.log.Warn().Str("stored", stored).Str("configured", current).
			Msg("embedding model changed, clearing index")
		if err := s.store.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
		if err := s.states.Clear(); err != nil {
			return fmt.Errorf("clear state: %w", err)
		}
	}
	if err := s.store.SetMeta(ctx, store.MetaEmbeddingModel, current); err != nil {
		return fmt.Errorf("record embedding model: %w", err)
	}
	return nil
}

func (s *Service) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}
