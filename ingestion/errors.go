package ingestion

import "errors"

var (
	// ErrCollectionRepositoryRequired is returned when a collection repository is not provided.
	ErrCollectionRepositoryRequired = errors.New("collection repository required")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrBlobStoreRequired is returned when a blob store is not provided.
	ErrBlobStoreRequired = errors.New("blob store required")

	// ErrNoFiles is returned when an upload batch is empty.
	ErrNoFiles = errors.New("no files in batch")

	// ErrTooManyFiles is returned when an upload batch exceeds the batch limit.
	ErrTooManyFiles = errors.New("too many files in batch")

	// ErrFileTooLarge is returned when a file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedFileType is returned for file types outside the allow-list.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrProviderFailed is returned when the embedding service fails after
	// all retry attempts.
	ErrProviderFailed = errors.New("embedding provider failed")

	// ErrInvalidMaxAttempts is returned when retry is configured with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)
