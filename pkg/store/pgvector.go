package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/feedchat/feedchat/internal/models"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PartialUpsertError reports a batch write where some records failed.
// Records written before or after a failed one stay written; there is no
// rollback.
type PartialUpsertError struct {
	FailedIDs []string
	Errs      []error
}

func (e *PartialUpsertError) Error() string {
	return fmt.Sprintf("failed to upsert %d records: %s",
		len(e.FailedIDs), strings.Join(e.FailedIDs, ", "))
}

// VectorStore is the pgvector-backed gateway to the article index.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "articles"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			published TEXT,
			content TEXT,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Exists reports whether a record with the given id is already stored.
// Errors are recoverable from the caller's point of view: a failed check
// for one id must not abort a whole ingestion run.
func (vs *VectorStore) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = $1", vs.config.TableName)

	var one int
	err := vs.pool.QueryRow(ctx, query, id).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check id %s: %w", id, err)
	}
	return true, nil
}

// Upsert writes records with insert-or-replace semantics keyed by id.
// Re-upserting an unchanged record is observationally a no-op. Failures
// are collected per record and returned as a PartialUpsertError so the
// caller knows exactly which ids did not make it.
func (vs *VectorStore) Upsert(ctx context.Context, records []models.Record) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, url, title, published, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			published = EXCLUDED.published,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	partial := &PartialUpsertError{}

	for _, rec := range records {
		_, err := vs.pool.Exec(ctx, stmt,
			rec.ID,
			rec.URL,
			sanitizeUTF8(rec.Title),
			rec.Published,
			sanitizeUTF8(rec.Text),
			pgvector.NewVector(rec.Embedding),
		)
		if err != nil {
			partial.FailedIDs = append(partial.FailedIDs, rec.ID)
			partial.Errs = append(partial.Errs, err)
		}
	}

	if len(partial.FailedIDs) > 0 {
		return partial
	}
	return nil
}

// Search returns up to topK passages ordered by descending cosine
// similarity. Tie ordering is whatever the store returns; the pipelines
// preserve it but do not define it.
func (vs *VectorStore) Search(ctx context.Context, embedding []float32, topK int) ([]models.Passage, error) {
	query := fmt.Sprintf(`
		SELECT id, url, title, published, content,
			1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %v", err)
	}
	defer rows.Close()

	var passages []models.Passage
	for rows.Next() {
		var p models.Passage
		err := rows.Scan(
			&p.Document.ID,
			&p.Document.URL,
			&p.Document.Title,
			&p.Document.Published,
			&p.Document.Text,
			&p.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		passages = append(passages, p)
	}

	return passages, rows.Err()
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
