// Package storage defines the persistence interface for documents and clauses.
package storage

import (
	"context"

	"github.com/redline-labs/clausemark/internal/models"
)

// Storage defines document and clause persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Clause operations
	CreateClause(ctx context.Context, c *models.Clause) error
	GetClause(ctx context.Context, id string) (*models.Clause, error)
	GetClausesByDocumentID(ctx context.Context, docID string) ([]*models.Clause, error)
	DeleteClausesByDocumentID(ctx context.Context, docID string) error

	// Batch operations
	BatchCreateClauses(ctx context.Context, clauses []*models.Clause) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountClauses(ctx context.Context) (int64, error)

	Close() error
}
