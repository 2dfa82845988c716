package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/quillstone/docbase/ai"
	"github.com/quillstone/docbase/blob"
	"github.com/quillstone/docbase/chunker"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/extract"
	"github.com/quillstone/docbase/storage"
)

// Pipeline orchestrates document ingestion: validation, blob storage,
// text extraction, chunking, embedding, and persistence. Documents in a
// batch are processed concurrently on a worker pool; the stages of a
// single document run sequentially.
type Pipeline struct {
	collections storage.CollectionRepository
	documents   storage.DocumentRepository
	chunks      storage.ChunkRepository
	embedder    ai.Embedder
	blobs       blob.Store
	extractor   *extract.Extractor
	splitter    *chunker.Chunker
	pool        *ants.Pool
	progress    *ProgressTracker

	embedBatchSize int
	maxAttempts    int
	baseDelay      time.Duration

	wg     sync.WaitGroup
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent document processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunker sets a custom text splitter.
func WithChunker(splitter *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if splitter != nil {
			p.splitter = splitter
		}
		return nil
	}
}

// WithEmbedBatchSize sets how many chunks are embedded per provider call.
// Default is 16.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.embedBatchSize = size
		}
		return nil
	}
}

// WithRetry configures embedding retry behavior.
// Default is 3 attempts with a 500ms base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	collections storage.CollectionRepository,
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	provider ai.Provider,
	blobs blob.Store,
	opts ...Option,
) (*Pipeline, error) {
	if collections == nil {
		return nil, ErrCollectionRepositoryRequired
	}
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		collections:    collections,
		documents:      documents,
		chunks:         chunks,
		embedder:       provider.Embedder(),
		blobs:          blobs,
		extractor:      extract.NewExtractor(),
		splitter:       chunker.NewChunker(),
		pool:           pool,
		progress:       NewProgressTracker(),
		embedBatchSize: 16,
		maxAttempts:    3,
		baseDelay:      500 * time.Millisecond,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest validates an upload batch, persists each file, and queues the
// documents for asynchronous processing. The whole batch is rejected if any
// file fails validation. The returned documents are in the pending state;
// processing errors surface later through document status, not here.
func (p *Pipeline) Ingest(ctx context.Context, collectionID core.ID, uploads []Upload, createdBy string) ([]*core.Document, error) {
	if err := ValidateBatch(uploads); err != nil {
		return nil, err
	}

	if _, err := p.collections.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}

	added := make([]*core.Document, 0, len(uploads))
	for _, upload := range uploads {
		handle, err := p.blobs.Put(upload.Content, upload.Filename)
		if err != nil {
			return added, fmt.Errorf("failed to store %s: %w", upload.Filename, err)
		}

		document := &core.Document{
			CollectionId:     collectionID,
			Filename:         filepath.Base(upload.Filename),
			OriginalFilename: upload.Filename,
			FileType:         NormalizeFileType(upload.Filename),
			FileSize:         int64(len(upload.Content)),
			StorageHandle:    handle,
			Metadata:         upload.Metadata.Clone(),
			Status:           core.StatusPending,
			CreatedBy:        createdBy,
		}

		document, err = p.documents.AddDocument(ctx, document)
		if err != nil {
			return added, fmt.Errorf("failed to add document %s: %w", upload.Filename, err)
		}
		added = append(added, document)

		p.progress.Track(document.Id, document.Filename)
		p.submit(document.Id)
	}

	p.logger.Info("batch queued for ingestion", "collection", collectionID, "files", len(added))
	return added, nil
}

// UploadResult reports the intake outcome for one file of an upload batch.
// A success means the document record exists and processing is queued, not
// that processing finished.
type UploadResult struct {
	Filename   string
	DocumentId core.ID
	Err        error
}

// UploadAndIngest is the per-file variant of Ingest: batch-level limits
// still reject the whole call, but a single file failing validation or
// intake gets its own error result without blocking the other files.
func (p *Pipeline) UploadAndIngest(ctx context.Context, collectionID core.ID, uploads []Upload, createdBy string) ([]UploadResult, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}
	if len(uploads) > MaxBatchFiles {
		return nil, fmt.Errorf("%w: %d files, limit is %d", ErrTooManyFiles, len(uploads), MaxBatchFiles)
	}
	if _, err := p.collections.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}

	results := make([]UploadResult, 0, len(uploads))
	for _, upload := range uploads {
		added, err := p.Ingest(ctx, collectionID, []Upload{upload}, createdBy)
		if err != nil {
			results = append(results, UploadResult{Filename: upload.Filename, Err: err})
			continue
		}
		results = append(results, UploadResult{Filename: upload.Filename, DocumentId: added[0].Id})
	}
	return results, nil
}

// Reprocess queues an existing document for a fresh extraction, chunking
// and embedding run. Only completed or failed documents can be reprocessed;
// pending or in-flight documents are rejected with core.ErrInvalidStatus.
func (p *Pipeline) Reprocess(ctx context.Context, documentID core.ID) error {
	document, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := core.ValidateStatusTransition(document.Status, core.StatusProcessing); err != nil {
		return err
	}

	p.progress.Track(document.Id, document.Filename)
	p.submit(document.Id)
	return nil
}

// Delete removes a document, its chunks, and its stored file content.
func (p *Pipeline) Delete(ctx context.Context, documentID core.ID) error {
	document, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := p.documents.DeleteDocument(ctx, documentID); err != nil {
		return err
	}

	if err := p.blobs.Delete(document.StorageHandle); err != nil {
		p.logger.Warn("failed to delete blob", "document", documentID, "err", err)
	}
	p.progress.Forget(documentID)
	return nil
}

// Result reports the outcome for one document of a bulk operation.
type Result struct {
	Id  core.ID
	Err error
}

// BulkDelete deletes each document independently; a failure on one does
// not stop the others. Every ID gets a result in input order.
func (p *Pipeline) BulkDelete(ctx context.Context, ids []core.ID) []Result {
	return p.bulk(ids, func(id core.ID) error {
		return p.Delete(ctx, id)
	})
}

// BulkReprocess queues each document independently; a failure on one does
// not stop the others. Every ID gets a result in input order.
func (p *Pipeline) BulkReprocess(ctx context.Context, ids []core.ID) []Result {
	return p.bulk(ids, func(id core.ID) error {
		return p.Reprocess(ctx, id)
	})
}

func (p *Pipeline) bulk(ids []core.ID, op func(core.ID) error) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		err := op(id)
		if err != nil {
			p.logger.Warn("bulk document operation failed", "id", id, "err", err)
		}
		results = append(results, Result{Id: id, Err: err})
	}
	return results
}

// Progress returns a snapshot of per-document pipeline progress.
func (p *Pipeline) Progress() []FileProgress {
	return p.progress.Snapshot()
}

// Wait blocks until all queued processing has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// submit queues asynchronous processing of one document.
func (p *Pipeline) submit(id core.ID) {
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		p.process(context.Background(), id)
	})
	if err != nil {
		p.wg.Done()
		p.logger.Error("failed to submit document for processing", "id", id, "err", err)
		p.fail(context.Background(), id, "processing queue unavailable")
	}
}

// process runs the sequential stages for one document. Failures are
// recorded on the document record, never returned: by the time process
// runs, the ingestion call has already returned to the caller.
func (p *Pipeline) process(ctx context.Context, id core.ID) {
	document, err := p.documents.GetDocument(ctx, id)
	if err != nil {
		// Deleted before processing started. Delete wins.
		p.progress.Forget(id)
		return
	}

	document.StartProcessing()
	if document, err = p.documents.UpdateDocument(ctx, document); err != nil {
		p.abandon(id, err)
		return
	}

	p.progress.Advance(id, StageExtracting)
	content, err := p.blobs.Get(document.StorageHandle)
	if err != nil {
		p.fail(ctx, id, "stored file content is unavailable")
		return
	}

	text, err := p.extractor.Text(content, document.FileType)
	if err != nil {
		p.logger.Warn("text extraction failed", "document", id, "type", document.FileType, "err", err)
		p.fail(ctx, id, sanitizeMessage(fmt.Sprintf("could not extract text from %s file", document.FileType)))
		return
	}

	p.progress.Advance(id, StageChunking)
	segments, err := p.splitter.Split(text)
	if err != nil {
		p.fail(ctx, id, "could not split document text")
		return
	}
	if len(segments) == 0 {
		p.fail(ctx, id, "document contains no extractable text")
		return
	}

	document.Content = text
	document.ContentHash = core.IDFromContent(text)
	if document, err = p.documents.UpdateDocument(ctx, document); err != nil {
		p.abandon(id, err)
		return
	}

	p.progress.Advance(id, StageEmbedding)
	chunks, err := p.embedSegments(ctx, document.Id, segments)
	if err != nil {
		p.logger.Error("embedding failed", "document", id, "err", err)
		p.fail(ctx, id, "embedding service is unavailable")
		return
	}

	p.progress.Advance(id, StageStoring)
	if _, err := p.chunks.ReplaceDocumentChunks(ctx, document.Id, chunks); err != nil {
		p.abandon(id, err)
		return
	}

	p.progress.Advance(id, StageCompleted)
	p.logger.Info("document processed", "document", id, "chunks", len(chunks))
}

// embedSegments embeds segments in batches with retry and returns chunk
// records ready for storage.
func (p *Pipeline) embedSegments(ctx context.Context, documentID core.ID, segments []chunker.Segment) ([]*core.Chunk, error) {
	chunks := make([]*core.Chunk, 0, len(segments))

	for start := 0; start < len(segments); start += p.embedBatchSize {
		end := start + p.embedBatchSize
		if end > len(segments) {
			end = len(segments)
		}
		batch := segments[start:end]

		texts := make([]string, len(batch))
		for i, segment := range batch {
			texts[i] = segment.Content
		}

		var vectors [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var embedErr error
			vectors, embedErr = p.embedder.EmbedTexts(ctx, texts)
			return embedErr
		}, p.maxAttempts, p.baseDelay)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderFailed, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrProviderFailed, len(vectors), len(batch))
		}

		for i, segment := range batch {
			chunks = append(chunks, &core.Chunk{
				DocumentId: documentID,
				Index:      segment.Index,
				Content:    segment.Content,
				Vector:     vectors[i],
			})
		}
	}

	return chunks, nil
}

// fail marks a document failed with a user-facing message.
// If the document was deleted concurrently the failure is dropped.
func (p *Pipeline) fail(ctx context.Context, id core.ID, msg string) {
	document, err := p.documents.GetDocument(ctx, id)
	if err != nil {
		p.progress.Forget(id)
		return
	}

	document.FailProcessing(msg)
	if _, err := p.documents.UpdateDocument(ctx, document); err != nil && !errors.Is(err, storage.ErrNotFound) {
		p.logger.Error("failed to record document failure", "document", id, "err", err)
	}
	p.progress.Fail(id, msg)
}

// abandon handles a storage error mid-processing. A not-found error means
// the document was deleted while processing; anything else is a real
// storage failure worth recording.
func (p *Pipeline) abandon(id core.ID, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		p.logger.Debug("document deleted during processing", "document", id)
		p.progress.Forget(id)
		return
	}
	p.logger.Error("storage failure during processing", "document", id, "err", err)
	p.fail(context.Background(), id, "internal storage failure")
}
