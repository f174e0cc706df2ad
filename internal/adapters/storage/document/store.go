package document

import (
	"context"

	domain "memberdesk/internal/domain/document"
)

// Store is a collection-style document store keyed by record id.
type Store interface {
	// Get fetches one document.
	// PRE: collection and id are non-empty
	// POST: Returns the document or domain.ErrNotFound
	Get(ctx context.Context, collection, id string) (domain.Document, error)

	// Add inserts a document under a generated id.
	// PRE: fields keys are plain identifiers
	// POST: Document persisted; ServerTimestamp values resolved by the store clock
	Add(ctx context.Context, collection string, fields domain.Fields) (string, error)

	// Set creates or replaces the document with the given id.
	// PRE: collection and id are non-empty
	// POST: Document body equals fields
	Set(ctx context.Context, collection, id string, fields domain.Fields) error

	// Update merges fields into an existing document.
	// PRE: document exists
	// POST: Listed fields replaced; others untouched; domain.ErrNotFound if missing
	Update(ctx context.Context, collection, id string, fields domain.Fields) error

	// Query returns documents matching all filters, ordered and limited.
	Query(ctx context.Context, q domain.Query) ([]domain.Document, error)

	// Count returns the number of documents matching all filters.
	Count(ctx context.Context, q domain.Query) (int, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
