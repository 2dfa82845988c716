package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated from database sequences; content hashes use IDFromContent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces the same ID. Used for content fingerprints
// (e.g. detecting that a reprocess re-chunked unchanged text).
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ProcessingStatus is the ingestion state of a Document.
type ProcessingStatus int

const (
	// StatusPending means the upload was accepted but processing has not started.
	StatusPending ProcessingStatus = iota + 1
	// StatusProcessing means the ingestion pipeline is running.
	StatusProcessing
	// StatusCompleted means all chunks are persisted and searchable.
	StatusCompleted
	// StatusFailed means a pipeline step failed; the document can be reprocessed.
	StatusFailed
)

// String returns the lowercase status name used in logs and CLI output.
func (s ProcessingStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Collection is a named, independently activatable namespace grouping documents.
// DocumentCount and TotalChunks are derived and maintained transactionally
// whenever documents or chunks of the collection change.
type Collection struct {
	Id            ID
	Name          string
	Description   string
	IsActive      bool
	Metadata      Metadata
	DocumentCount int
	TotalChunks   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Document is an uploaded file tracked through the ingestion state machine.
// Content holds the extracted text; ContentHash is a fingerprint of it.
// Status is mutated only by the ingestion pipeline or by explicit delete.
type Document struct {
	Id               ID
	CollectionId     ID
	Filename         string
	OriginalFilename string
	FileType         string // normalized type token ("txt", "pdf", ...)
	FileSize         int64
	StorageHandle    string
	Content          string
	ContentHash      ID
	Metadata         Metadata
	Status           ProcessingStatus
	ErrorMessage     string
	ChunkCount       int
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StartProcessing moves the document into the processing state.
func (d *Document) StartProcessing() {
	d.Status = StatusProcessing
	d.ErrorMessage = ""
	d.UpdatedAt = time.Now().UTC()
}

// CompleteProcessing marks the document completed with its final chunk count.
func (d *Document) CompleteProcessing(chunkCount int) {
	d.Status = StatusCompleted
	d.ChunkCount = chunkCount
	d.ErrorMessage = ""
	d.UpdatedAt = time.Now().UTC()
}

// FailProcessing marks the document failed. msg must already be sanitized;
// it is shown to users as-is.
func (d *Document) FailProcessing(msg string) {
	d.Status = StatusFailed
	d.ErrorMessage = msg
	d.UpdatedAt = time.Now().UTC()
}

// Chunk is a bounded slice of a document's extracted text, the unit of
// embedding and retrieval. Index is 0-based and stable within a document;
// it is contiguous immediately after ingestion but ad-hoc chunk deletion
// may leave gaps (deletion does not renumber).
type Chunk struct {
	Id         ID
	DocumentId ID
	Index      int
	Content    string
	Vector     []float32 // Embedding vector (populated by the pipeline)
	Metadata   Metadata
	CreatedAt  time.Time
}

// SearchLog is an append-only record of a single search call.
type SearchLog struct {
	Id              ID
	Query           string
	SearchType      string
	ResultsCount    int
	ExecutionTimeMS int64
	CreatedAt       time.Time
}

// SearchFilters narrows a search's candidate scope and result set.
// Zero values mean "no restriction" for the corresponding facet.
type SearchFilters struct {
	CollectionIds []ID
	DocumentTypes []string
	DateFrom      time.Time
	DateTo        time.Time
	// MinSimilarity applies only to modes that produce a similarity score.
	MinSimilarity float64
	// HasMinSimilarity reports whether MinSimilarity was set explicitly.
	// When false, semantic search applies its default threshold.
	HasMinSimilarity bool
}

// SearchResult is one ranked hit. It is produced per query and never persisted.
// SimilarityScore is set by semantic search, Rank by keyword and hybrid search.
type SearchResult struct {
	ChunkId            ID
	DocumentId         ID
	DocumentName       string
	CollectionName     string
	Content            string
	HighlightedContent string
	SimilarityScore    float64
	HasSimilarity      bool
	Rank               float64
	HasRank            bool
	Metadata           Metadata
	CreatedAt          time.Time // Chunk creation time, used for deterministic tie-breaks
}

// User identifies the caller. Authentication and role resolution are
// external collaborators; callers pass the resolved user in.
type User struct {
	Id      string
	IsAdmin bool
}
