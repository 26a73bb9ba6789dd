package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"axon/internal/chunker"
)

func init() {
	sqlite_vec.Auto()
}

// ChunkStore provides persistence for code chunks and their embeddings.
type ChunkStore interface {
	// Upsert stores chunks with their embeddings. Chunks whose ID is already
	// present are left untouched. Returns the number of chunks inserted.
	Upsert(ctx context.Context, chunks []chunker.Chunk, embeddings [][]float32) (int, error)
	// DeleteByPath removes all chunks for one file and returns how many were removed.
	DeleteByPath(ctx context.Context, repo, path string) (int, error)
	// DeleteByRepo removes all chunks for a repository and returns how many were removed.
	DeleteByRepo(ctx context.Context, repo string) (int, error)
	// DeleteAll removes every chunk and embedding.
	DeleteAll(ctx context.Context) error
	// Search finds the top-k chunks closest to the query embedding.
	Search(ctx context.Context, queryEmbedding []float32, k int, filter SearchFilter) ([]SearchResult, error)
	// Stats reports chunk counts overall and per repository and language.
	Stats(ctx context.Context) (Stats, error)
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(ctx context.Context, key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(ctx context.Context, key, value string) error
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements ChunkStore backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open creates or opens a SQLite database at the given path and initializes
// the schema with dim-sized embedding vectors.
func Open(dbPath string, dim int, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db, dim); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, chunks []chunker.Chunk, embeddings [][]float32) (int, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("mismatched chunks (%d) and embeddings (%d)", len(chunks), len(embeddings))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	insChunk, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO chunks
		(chunk_id, repo, path, language, kind, name, context, content, start_line, end_line, commit_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer insChunk.Close()

	insVec, err := tx.PrepareContext(ctx, "INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return 0, err
	}
	defer insVec.Close()

	inserted := 0
	for i, c := range chunks {
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			s.log.Warn().Err(err).Str("chunk", c.ID).Str("path", c.Path).Msg("skipping chunk with bad embedding")
			continue
		}
		res, err := insChunk.ExecContext(ctx,
			c.ID, c.Repo, c.Path, c.Language, c.Kind, c.Name, c.Context,
			c.Content, c.StartLine, c.EndLine, c.Commit, c.CreatedAt,
		)
		if err != nil {
			s.log.Warn().Err(err).Str("chunk", c.ID).Str("path", c.Path).Msg("failed to store chunk, skipping")
			continue
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			// Same chunk ID already stored.
			continue
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		if _, err := insVec.ExecContext(ctx, rowID, blob); err != nil {
			if _, derr := tx.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", rowID); derr != nil {
				return 0, derr
			}
			s.log.Warn().Err(err).Str("chunk", c.ID).Str("path", c.Path).Msg("failed to store embedding, skipping chunk")
			continue
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *SQLiteStore) DeleteByPath(ctx context.Context, repo, path string) (int, error) {
	return s.deleteChunks(ctx, "repo = ? AND path = ?", repo, path)
}

func (s *SQLiteStore) DeleteByRepo(ctx context.Context, repo string) (int, error) {
	return s.deleteChunks(ctx, "repo = ?", repo)
}

func (s *SQLiteStore) deleteChunks(ctx context.Context, where string, args ...any) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM chunks WHERE "+where, args...)
	if err != nil {
		return 0, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_chunks WHERE chunk_id = ?", id); err != nil {
			return 0, err
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE "+where, args...); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vec_chunks"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Search(ctx context.Context, queryEmbedding []float32, k int, filter SearchFilter) ([]SearchResult, error) {
	blob, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	// KNN runs before the metadata filters, so over-fetch when filters
	// will prune candidates.
	knnK := k
	if len(filter.Repos) > 0 || len(filter.Languages) > 0 {
		knnK = k * 10
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT c.chunk_id, c.repo, c.path, c.language, c.kind, c.name, c.context, c.content,
		       c.start_line, c.end_line, c.commit_hash, c.created_at, v.distance
		FROM (
			SELECT chunk_id, distance
			FROM vec_chunks
			WHERE embedding MATCH ? AND k = ?
		) v
		JOIN chunks c ON c.id = v.chunk_id`)
	args := []any{blob, knnK}

	var conds []string
	if len(filter.Repos) > 0 {
		conds = append(conds, "c.repo IN ("+placeholders(len(filter.Repos))+")")
		for _, r := range filter.Repos {
			args = append(args, r)
		}
	}
	if len(filter.Languages) > 0 {
		conds = append(conds, "c.language IN ("+placeholders(len(filter.Languages))+")")
		for _, l := range filter.Languages {
			args = append(args, l)
		}
	}
	if len(conds) > 0 {
		sb.WriteString("\n\t\tWHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString("\n\t\tORDER BY v.distance\n\t\tLIMIT ?")
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
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

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByRepo: map[string]int{}, ByLanguage: map[string]int{}}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&st.TotalChunks); err != nil {
		return Stats{}, err
	}
	if err := s.countBy(ctx, "repo", st.ByRepo); err != nil {
		return Stats{}, err
	}
	if err := s.countBy(ctx, "language", st.ByLanguage); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *SQLiteStore) countBy(ctx context.Context, column string, out map[string]int) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM chunks GROUP BY "+column)
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

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// placeholders returns a comma-separated list of n SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
