package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"pdfchat/internal/models"
)

// ErrDimensionMismatch is returned when an incoming embedding's length
// disagrees with the store's configured dimension. The check runs before
// any write, so a bad batch never lands partially.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type PgVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PgVector persists session-scoped chunks and embeddings in Postgres
// with the pgvector extension.
type PgVector struct {
	config PgVectorConfig
	pool   *pgxpool.Pool
}

func NewPgVector(ctx context.Context, config PgVectorConfig) (*PgVector, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // OpenAI text-embedding-3-small
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PgVector{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PgVector) initialize(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			filename TEXT,
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.config.TableName, s.config.VectorDim)

	if _, err = s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createSessionIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_session_idx ON %s (session_id)`,
		s.config.TableName, s.config.TableName)

	if _, err = s.pool.Exec(ctx, createSessionIndex); err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}

	createVectorIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		s.config.TableName, s.config.TableName)

	if _, err = s.pool.Exec(ctx, createVectorIndex); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	return nil
}

// Insert appends a batch of chunks for one session inside a single
// transaction: either every record lands or none do.
func (s *PgVector) Insert(ctx context.Context, sessionID string, docs []models.StoredDocument) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if len(doc.Embedding) != s.config.VectorDim {
			return fmt.Errorf("chunk %d has dimension %d, store expects %d: %w",
				doc.Ordinal, len(doc.Embedding), s.config.VectorDim, ErrDimensionMismatch)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, filename, chunk_index, total_chunks, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.config.TableName)

	for _, doc := range docs {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err = tx.Exec(ctx, stmt,
			id,
			sessionID,
			doc.Filename,
			doc.Ordinal,
			doc.TotalChunks,
			doc.Content,
			pgvector.NewVector(doc.Embedding),
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", doc.Ordinal, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit insert: %w", err)
	}

	return nil
}

func (s *PgVector) SelectBySession(ctx context.Context, sessionID string) ([]models.StoredDocument, error) {
	query := fmt.Sprintf(`
		SELECT id, filename, chunk_index, total_chunks, content, embedding, created_at
		FROM %s
		WHERE session_id = $1
		ORDER BY chunk_index`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session documents: %w", err)
	}
	defer rows.Close()

	var docs []models.StoredDocument
	for rows.Next() {
		var doc models.StoredDocument
		var embedding pgvector.Vector
		err := rows.Scan(
			&doc.ID,
			&doc.Filename,
			&doc.Ordinal,
			&doc.TotalChunks,
			&doc.Content,
			&embedding,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		doc.SessionID = sessionID
		doc.Embedding = embedding.Slice()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session documents: %w", err)
	}

	return docs, nil
}

// DeleteBySession removes every record for the session. Deleting an
// empty or unknown session succeeds with a zero count.
func (s *PgVector) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, s.config.TableName)

	tag, err := s.pool.Exec(ctx, stmt, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session documents: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOlderThan removes records created strictly before the cutoff,
// across all sessions, and reports which sessions were touched.
func (s *PgVector) DeleteOlderThan(ctx context.Context, cutoff time.Time) (models.SweepResult, error) {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1 RETURNING session_id`, s.config.TableName)

	rows, err := s.pool.Query(ctx, stmt, cutoff)
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("failed to delete old documents: %w", err)
	}
	defer rows.Close()

	var result models.SweepResult
	seen := make(map[string]bool)
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return models.SweepResult{}, fmt.Errorf("failed to scan session id: %w", err)
		}
		result.Deleted++
		if !seen[sessionID] {
			seen[sessionID] = true
			result.Sessions = append(result.Sessions, sessionID)
		}
	}
	if err := rows.Err(); err != nil {
		return models.SweepResult{}, fmt.Errorf("failed to read swept rows: %w", err)
	}

	return result, nil
}

func (s *PgVector) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
