// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/redline-labs/clausemark/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		pages TEXT NOT NULL,
		source_ext TEXT,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS clauses (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		heading TEXT,
		clause_type TEXT,
		text TEXT NOT NULL,
		clause_index INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_clauses_document_id ON clauses(document_id);
	CREATE INDEX IF NOT EXISTS idx_clauses_document_index ON clauses(document_id, clause_index);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	pagesJSON, err := json.Marshal(doc.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages: %w", err)
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, pages, source_ext, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, string(pagesJSON), doc.SourceExt, string(metadataJSON), doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var pagesJSON, metadataJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, pages, source_ext, metadata, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &pagesJSON, &doc.SourceExt, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(pagesJSON), &doc.Pages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pages: %w", err)
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &doc, nil
}

// UpdateDocument updates an existing document.
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *models.Document) error {
	pagesJSON, err := json.Marshal(doc.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages: %w", err)
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	doc.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, pages = ?, source_ext = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		doc.Title, string(pagesJSON), doc.SourceExt, string(metadataJSON), doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", doc.ID)
	}
	return nil
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocuments returns documents with offset and limit.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, pages, source_ext, metadata, created_at, updated_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var pagesJSON, metadataJSON string
		if err := rows.Scan(&doc.ID, &doc.Title, &pagesJSON, &doc.SourceExt, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(pagesJSON), &doc.Pages)
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &doc.Metadata)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// CreateClause inserts a single clause.
func (s *SQLiteStorage) CreateClause(ctx context.Context, c *models.Clause) error {
	c.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clauses (id, document_id, heading, clause_type, text, clause_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.DocumentID, c.Heading, c.ClauseType, c.Text, c.ClauseIndex, c.CreatedAt,
	)
	return err
}

// GetClause returns a clause by ID.
func (s *SQLiteStorage) GetClause(ctx context.Context, id string) (*models.Clause, error) {
	var c models.Clause
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, heading, clause_type, text, clause_index, created_at
		 FROM clauses WHERE id = ?`, id,
	).Scan(&c.ID, &c.DocumentID, &c.Heading, &c.ClauseType, &c.Text, &c.ClauseIndex, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("clause not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetClausesByDocumentID returns all clauses for a document ordered by clause_index.
func (s *SQLiteStorage) GetClausesByDocumentID(ctx context.Context, docID string) ([]*models.Clause, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, heading, clause_type, text, clause_index, created_at
		 FROM clauses WHERE document_id = ? ORDER BY clause_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clauses []*models.Clause
	for rows.Next() {
		var c models.Clause
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Heading, &c.ClauseType, &c.Text, &c.ClauseIndex, &c.CreatedAt); err != nil {
			return nil, err
		}
		clauses = append(clauses, &c)
	}
	return clauses, rows.Err()
}

// DeleteClausesByDocumentID removes all clauses for a document.
func (s *SQLiteStorage) DeleteClausesByDocumentID(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM clauses WHERE document_id = ?`, docID)
	return err
}

// BatchCreateClauses inserts multiple clauses in a transaction.
func (s *SQLiteStorage) BatchCreateClauses(ctx context.Context, clauses []*models.Clause) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clauses (id, document_id, heading, clause_type, text, clause_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range clauses {
		c.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Heading, c.ClauseType, c.Text, c.ClauseIndex, c.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountClauses returns the total number of clauses.
func (s *SQLiteStorage) CountClauses(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clauses`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
