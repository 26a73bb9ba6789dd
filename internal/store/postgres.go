package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"

	"axon/internal/chunker"
)

const pgSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
    chunk_id    TEXT PRIMARY KEY,
    repo        TEXT NOT NULL,
    path        TEXT NOT NULL,
    language    TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL DEFAULT '',
    context     TEXT NOT NULL DEFAULT '',
    content     TEXT NOT NULL,
    start_line  INT NOT NULL,
    end_line    INT NOT NULL,
    commit_hash TEXT NOT NULL,
    created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
    embedding   vector(%d)
);

CREATE INDEX IF NOT EXISTS chunks_repo_path_idx ON chunks (repo, path);
CREATE INDEX IF NOT EXISTS chunks_repo_idx ON chunks (repo);
CREATE INDEX IF NOT EXISTS chunks_embedding_idx
  ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// PostgresStore implements ChunkStore backed by Postgres + pgvector.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// OpenPostgres connects to the database at url and applies the schema with
// dim-sized embedding vectors.
func OpenPostgres(ctx context.Context, url string, dim int, log zerolog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(pgSchema, dim)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PostgresStore{pool: pool, log: log}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, chunks []chunker.Chunk, embeddings [][]float32) (int, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("mismatched chunks (%d) and embeddings (%d)", len(chunks), len(embeddings))
	}
	const q = `
		INSERT INTO chunks
		(chunk_id, repo, path, language, kind, name, context, content, start_line, end_line, commit_hash, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (chunk_id) DO NOTHING`

	inserted := 0
	for i, c := range chunks {
		tag, err := s.pool.Exec(ctx, q,
			c.ID, c.Repo, c.Path, c.Language, c.Kind, c.Name, c.Context,
			c.Content, c.StartLine, c.EndLine, c.Commit, c.CreatedAt,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			s.log.Warn().Err(err).Str("chunk", c.ID).Str("path", c.Path).Msg("failed to store chunk, skipping")
			continue
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *PostgresStore) DeleteByPath(ctx context.Context, repo, path string) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM chunks WHERE repo = $1 AND path = $2", repo, path)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteByRepo(ctx context.Context, repo string) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM chunks WHERE repo = $1", repo)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM chunks")
	return err
}

func (s *PostgresStore) Search(ctx context.Context, queryEmbedding []float32, k int, filter SearchFilter) ([]SearchResult, error) {
	args := []any{pgvector.NewVector(queryEmbedding)}
	ai := 2

	var conds []string
	if len(filter.Repos) > 0 {
		conds = append(conds, fmt.Sprintf("repo = ANY($%d)", ai))
		args = append(args, filter.Repos)
		ai++
	}
	if len(filter.Languages) > 0 {
		conds = append(conds, fmt.Sprintf("language = ANY($%d)", ai))
		args = append(args, filter.Languages)
		ai++
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	q := fmt.Sprintf(`
		SELECT chunk_id, repo, path, language, kind, name, context, content,
		       start_line, end_line, commit_hash, created_at, embedding <=> $1 AS distance
		FROM chunks%s
		ORDER BY embedding <=> $1
		LIMIT $%d`, where, ai)
	args = append(args, k)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		err := rows.Scan(
			&r.Chunk.ID, &r.Chunk.Repo, &r.Chunk.Path, &r.Chunk.Language,
			&r.Chunk.Kind, &r.Chunk.Name, &r.Chunk.Context, &r.Chunk.Content,
			&r.Chunk.StartLine, &r.Chunk.EndLine, &r.Chunk.Commit, &r.Chunk.CreatedAt,
			&r.Distance,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByRepo: map[string]int{}, ByLanguage: map[string]int{}}
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&st.TotalChunks); err != nil {
		return Stats{}, err
	}
	if err := s.pgCountBy(ctx, "repo", st.ByRepo); err != nil {
		return Stats{}, err
	}
	if err := s.pgCountBy(ctx, "language", st.ByLanguage); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *PostgresStore) pgCountBy(ctx context.Context, column string, out map[string]int) error {
	rows, err := s.pool.Query(ctx, "SELECT "+column+", COUNT(*) FROM chunks GROUP BY "+column)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		out[key] = n
	}
	return rows.Err()
}

func (s *PostgresStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, "SELECT value FROM meta WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *PostgresStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
