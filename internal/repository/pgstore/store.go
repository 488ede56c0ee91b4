package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// HNSWConfig holds pgvector HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Store is the PostgreSQL TemplateIndex and instance store.
type Store struct {
	db   *sql.DB
	dims int
	hnsw HNSWConfig
}

// Open connects through the pgx stdlib driver and pings the server.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}

// New wraps an open connection pool.
func New(db *sql.DB, dims int, hnsw HNSWConfig) *Store {
	return &Store{db: db, dims: dims, hnsw: hnsw}
}

// EnsureSchema creates the extension, tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dims, s.hnsw) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}

func schemaStatements(dims int, hnsw HNSWConfig) []string {
	m, ef := hnsw.M, hnsw.EFConstruct
	if m <= 0 {
		m = 16
	}
	if ef <= 0 {
		ef = 64
	}
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS templates (
            id UUID PRIMARY KEY,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            doc_type TEXT NOT NULL DEFAULT '',
            jurisdiction TEXT NOT NULL DEFAULT '',
            tags JSONB NOT NULL DEFAULT '[]'::jsonb,
            body TEXT NOT NULL,
            source_url TEXT NOT NULL DEFAULT '',
            embedding vector(%d),
            created_at BIGINT NOT NULL
        )`, dims),
		`CREATE INDEX IF NOT EXISTS idx_templates_created_at ON templates(created_at DESC)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_templates_embedding ON templates
            USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d)`, m, ef),
		`CREATE TABLE IF NOT EXISTS template_variables (
            template_id UUID NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
            key TEXT NOT NULL,
            position INT NOT NULL,
            label TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            example TEXT NOT NULL DEFAULT '',
            required BOOLEAN NOT NULL DEFAULT TRUE,
            data_type TEXT NOT NULL DEFAULT 'string',
            validation_pattern TEXT NOT NULL DEFAULT '',
            allowed_values JSONB NOT NULL DEFAULT '[]'::jsonb,
            question TEXT NOT NULL DEFAULT '',
            PRIMARY KEY (template_id, key)
        )`,
		`CREATE TABLE IF NOT EXISTS instances (
            id UUID PRIMARY KEY,
            template_id UUID NOT NULL,
            user_query TEXT NOT NULL DEFAULT '',
            answers JSONB NOT NULL DEFAULT '{}'::jsonb,
            draft TEXT NOT NULL DEFAULT '',
            missing JSONB NOT NULL DEFAULT '[]'::jsonb,
            created_at BIGINT NOT NULL
        )`,
	}
}
