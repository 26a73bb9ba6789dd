package ingest

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"axon/internal/chunker"
)

const (
	embedBatchSize    = 32
	embedRetries      = 3
	embedBackoffBase  = 2 * time.Second
	embedBackoffLimit = 10 * time.Second
)

// fileResult is one file's extracted chunks with their embeddings, ready for
// the store writer.
type fileResult struct {
	path       string
	modified   bool
	chunks     []chunker.Chunk
	embeddings [][]float32
}

// runPipeline fans file processing out across workers and funnels results
// through a single store writer, so a modified file's old chunks are always
// retired before its rebuilt ones land. Per-file failures are logged and
// skipped; only context cancellation aborts the run.
func (s *Service) runPipeline(ctx context.Context, log zerolog.Logger, ws Workspace, repo, commit string, paths []string, modified map[string]bool, stats *Stats) error {
	if len(paths) == 0 {
		return nil
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan string)
	results := make(chan fileResult)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var workerWg sync.WaitGroup
	for range workers {
		workerWg.Add(1)
		g.Go(func() error {
			defer workerWg.Done()
			for path := range jobs {
				res, ok := s.processFile(ctx, log, ws, repo, commit, path, modified[path])
				if !ok {
					continue
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workerWg.Wait()
		close(results)
	}()

	for res := range results {
		if res.modified {
			n, err := s.store.DeleteByPath(ctx, repo, res.path)
			if err != nil {
				log.Error().Err(err).Str("path", res.path).Msg("failed to delete old chunks")
				continue
			}
			stats.ChunksDeleted += n
			stats.FilesModified++
		} else {
			stats.FilesAdded++
		}
		if len(res.chunks) == 0 {
			continue
		}
		added, err := s.store.Upsert(ctx, res.chunks, res.embeddings)
		if err != nil {
			log.Error().Err(err).Str("path", res.path).Msg("failed to store chunks")
			continue
		}
		stats.ChunksAdded += added
		stats.FilesProcessed++
	}

	return g.Wait()
}

// processFile reads, chunks, and embeds one file. ok is false when the file
// should be skipped.
func (s *Service) processFile(ctx context.Context, log zerolog.Logger, ws Workspace, repo, commit, path string, modified bool) (fileResult, bool) {
	lang, ok := chunker.DetectLanguage(path)
	if !ok {
		return fileResult{}, false
	}

	content, err := ws.Read(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not read file")
		return fileResult{}, false
	}
	if content == "" {
		log.Warn().Str("path", path).Msg("skipping empty file")
		return fileResult{}, false
	}

	chunks := s.extractor.Extract(content, path, repo, commit, lang)
	res := fileResult{path: path, modified: modified, chunks: chunks}
	if len(chunks) == 0 {
		return res, true
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = embedText(c)
	}
	embeddings, err := s.embedBatched(ctx, texts)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to embed chunks")
		return fileResult{}, false
	}
	res.embeddings = embeddings
	return res, true
}

// embedBatched embeds texts in sub-batches so a large file cannot blow up a
// single provider request.
func (s *Service) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		embs, err := s.embedWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, embs...)
	}
	return out, nil
}

// embedWithRetry retries transient provider failures with capped exponential
// backoff before giving up.
func (s *Service) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := embedBackoffBase
	var lastErr error
	for attempt := 1; attempt <= embedRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			if backoff > embedBackoffLimit {
				backoff = embedBackoffLimit
			}
		}
		embs, err := s.embed.Embed(ctx, texts)
		if err == nil {
			return embs, nil
		}
		lastErr = err
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("embedding request failed")
	}
	return nil, lastErr
}

// embedText renders a chunk with its provenance so the embedding captures
// where the code lives, not just what it says.
func embedText(c chunker.Chunk) string {
	parts := []string{
		"Repository: " + c.Repo,
		"File: " + c.Path,
		"Language: " + c.Language,
		"Type: " + c.Kind,
	}
	if c.Name != "" {
		parts = append(parts, "Name: "+c.Name)
	}
	if c.Context != "" {
		parts = append(parts, "Context: "+c.Context)
	}
	parts = append(parts, "\nCode:\n"+c.Content)
	return strings.Join(parts, "\n")
}
