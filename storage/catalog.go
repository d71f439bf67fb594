// Package storage provides the SQLite ingest catalog.
//
// Information Hiding:
// - SQLite connection management hidden behind the Catalog type
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Document is one ingested source file as recorded in the catalog.
// ContentHash is a hex SHA-256 of the cleaned file content; the ingester
// uses it to skip files that have not changed since the last run.
type Document struct {
	Path        string
	ContentHash string
	ChunkCount  int
	UpdatedAt   time.Time
}

// Catalog tracks which source files have been ingested into the vector
// store, so re-ingest runs only embed what changed.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens or creates a catalog database at the given path.
// Creates parent directories if they don't exist.
func OpenCatalog(path string) (*Catalog, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	catalog := &Catalog{db: db}
	if err := catalog.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return catalog, nil
}

// NewCatalogInMemory creates an in-memory catalog (useful for testing).
func NewCatalogInMemory() (*Catalog, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	catalog := &Catalog{db: db}
	if err := catalog.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return catalog, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			chunk_count INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_documents_hash
		ON documents(content_hash);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record inserts or updates the catalog entry for a document.
func (c *Catalog) Record(ctx context.Context, doc Document) error {
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO documents (path, content_hash, chunk_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at`,
		doc.Path, doc.ContentHash, doc.ChunkCount, updatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record document: %w", err)
	}
	return nil
}

// Get returns the catalog entry for a path. The second return value is
// false when the path has never been ingested.
func (c *Catalog) Get(ctx context.Context, path string) (Document, bool, error) {
	var (
		doc  Document
		unix int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT path, content_hash, chunk_count, updated_at FROM documents WHERE path = ?",
		path).Scan(&doc.Path, &doc.ContentHash, &doc.ChunkCount, &unix)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to query document: %w", err)
	}
	doc.UpdatedAt = time.Unix(unix, 0)
	return doc, true, nil
}

// Unchanged reports whether a path was already ingested with the given
// content hash.
func (c *Catalog) Unchanged(ctx context.Context, path, contentHash string) (bool, error) {
	doc, ok, err := c.Get(ctx, path)
	if err != nil || !ok {
		return false, err
	}
	return doc.ContentHash == contentHash, nil
}

// Documents lists all catalog entries ordered by path.
func (c *Catalog) Documents(ctx context.Context) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT path, content_hash, chunk_count, updated_at FROM documents ORDER BY path ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			doc  Document
			unix int64
		)
		if err := rows.Scan(&doc.Path, &doc.ContentHash, &doc.ChunkCount, &unix); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.UpdatedAt = time.Unix(unix, 0)
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// Delete removes the catalog entry for a path. Deleting an unknown path
// is not an error.
func (c *Catalog) Delete(ctx context.Context, path string) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
