// Package models defines core data structures for documents, clauses, and highlight results.
package models

import (
	"strings"
	"time"
)

// Document represents an ingested contract document with metadata.
// Pages hold the extracted text per rendered page, in order.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Pages     []string               `json:"pages" db:"pages"`
	SourceExt string                 `json:"source_ext,omitempty" db:"source_ext"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Text returns the full extracted text (pages joined by newlines).
func (d *Document) Text() string {
	return strings.Join(d.Pages, "\n")
}

// Clause represents one clause extracted from a contract. Its text is used
// only as a matching key by the highlight coordinator and is never mutated.
type Clause struct {
	ID          string    `json:"id" db:"id"`
	DocumentID  string    `json:"document_id" db:"document_id"`
	Heading     string    `json:"heading,omitempty" db:"heading"`
	ClauseType  string    `json:"clause_type,omitempty" db:"clause_type"`
	Text        string    `json:"text" db:"text"`
	ClauseIndex int       `json:"clause_index" db:"clause_index"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DocumentInput is the input for ingesting a document over the API.
// Content is the raw document body; Ext tells the extractor how to parse it
// (empty means plain text).
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Content  []byte                 `json:"content"`
	Ext      string                 `json:"ext,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
