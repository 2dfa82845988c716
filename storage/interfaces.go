package storage

import (
	"context"
	"time"

	"github.com/quillstone/docbase/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}

// CollectionRepository provides operations for managing collections.
type CollectionRepository interface {
	Repository
	// AddCollection adds a collection to storage.
	// Generates a new ID from sequence and sets CreatedAt/UpdatedAt.
	// Returns ErrDuplicateName if another collection (active or inactive)
	// already uses the exact name.
	AddCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error)

	// UpdateCollection updates an existing collection.
	// Updates the UpdatedAt timestamp automatically and maintains the
	// name uniqueness index. Returns ErrNotFound if the collection doesn't
	// exist and ErrDuplicateName if the new name collides with another
	// collection.
	UpdateCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error)

	// DeleteCollection removes a collection and cascades to its documents
	// and their chunks. Returns ErrNotFound if the collection doesn't exist.
	DeleteCollection(ctx context.Context, id core.ID) error

	// GetCollection retrieves a single collection by ID.
	// Returns ErrNotFound if the collection doesn't exist.
	GetCollection(ctx context.Context, id core.ID) (*core.Collection, error)

	// GetCollectionByName retrieves a collection by exact (case-sensitive) name.
	// Returns ErrNotFound if no collection uses the name.
	GetCollectionByName(ctx context.Context, name string) (*core.Collection, error)

	// ListCollections retrieves all collections ordered by ID.
	// When includeInactive is false, deactivated collections are skipped.
	ListCollections(ctx context.Context, includeInactive bool) ([]*core.Collection, error)
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository
	// AddDocument adds a document to storage.
	// Generates a new ID from sequence, sets timestamps, and increments
	// the owning collection's document count in the same transaction.
	// Returns ErrNotFound if the collection doesn't exist.
	AddDocument(ctx context.Context, document *core.Document) (*core.Document, error)

	// UpdateDocument updates an existing document.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, document *core.Document) (*core.Document, error)

	// DeleteDocument removes a document and cascades to its chunks,
	// adjusting the owning collection's derived counts.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocumentsByCollection retrieves all documents belonging to a
	// collection, ordered by ID.
	GetDocumentsByCollection(ctx context.Context, collectionID core.ID) ([]*core.Document, error)
}

// ChunkRepository provides operations for managing chunks.
type ChunkRepository interface {
	Repository
	// ReplaceDocumentChunks atomically replaces all chunks of a document and
	// marks the document completed with the new chunk count. Any previously
	// stored chunks for the document are removed in the same transaction.
	// The parent document is re-read inside the transaction: if it has been
	// deleted concurrently, the new chunks are discarded and ErrNotFound is
	// returned (delete wins over reprocess).
	ReplaceDocumentChunks(ctx context.Context, documentID core.ID, chunks []*core.Chunk) ([]*core.Chunk, error)

	// UpdateChunk updates an existing chunk's content, vector or metadata.
	// Returns ErrNotFound if the chunk doesn't exist.
	UpdateChunk(ctx context.Context, chunk *core.Chunk) (*core.Chunk, error)

	// DeleteChunk removes a single chunk and decrements the parent
	// document's chunk count and the collection's total. Remaining chunk
	// indices are NOT renumbered. Returns ErrNotFound if the chunk doesn't
	// exist.
	DeleteChunk(ctx context.Context, id core.ID) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunksByDocument retrieves all chunks of a document ordered by
	// chunk index.
	GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// GetChunksByDocuments retrieves all chunks belonging to any of the
	// given documents, ordered by chunk ID. This is the candidate-scope
	// fetch used by the search engine; chunks of documents outside the
	// slice are never visited.
	GetChunksByDocuments(ctx context.Context, documentIDs []core.ID) ([]*core.Chunk, error)

	// FindSimilarChunks scores every embedded chunk of the given documents
	// against the query vector using cosine similarity and returns matches
	// with similarity >= minSimilarity as (chunk, score) pairs, ordered by
	// score descending then chunk ID ascending, up to limit results.
	FindSimilarChunks(ctx context.Context, vector []float32, minSimilarity float64, documentIDs []core.ID, limit int) ([]*core.Chunk, []float64, error)
}

// SearchLogRepository provides append and range-read operations for search logs.
type SearchLogRepository interface {
	Repository
	// AppendSearchLog appends a search log entry.
	// Generates a new ID from sequence and sets CreatedAt if zero.
	AppendSearchLog(ctx context.Context, log *core.SearchLog) (*core.SearchLog, error)

	// GetSearchLogsByDateRange retrieves log entries where
	// start <= CreatedAt < end, ordered by creation time.
	GetSearchLogsByDateRange(ctx context.Context, start, end time.Time) ([]*core.SearchLog, error)
}
