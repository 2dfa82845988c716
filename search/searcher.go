package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/quillstone/docbase/ai"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage"
)

// Mode selects the retrieval strategy for a search call.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
	ModeHybrid   Mode = "hybrid"
)

const (
	// DefaultMinSimilarity is the semantic threshold applied when the
	// caller doesn't set one.
	DefaultMinSimilarity = 0.7

	// DefaultSemanticWeight and DefaultKeywordWeight are the hybrid fusion
	// weights applied when the caller doesn't set them.
	DefaultSemanticWeight = 0.7
	DefaultKeywordWeight  = 0.3

	// DefaultLimit bounds a search when the caller doesn't set a limit.
	DefaultLimit = 50

	// weightTolerance is the allowed deviation of the hybrid weight sum
	// from 1.0.
	weightTolerance = 1e-6
)

// Request describes one search call.
type Request struct {
	Query   string
	Mode    Mode // defaults to ModeSemantic
	Limit   int  // defaults to DefaultLimit
	Filters *core.SearchFilters

	// SemanticWeight and KeywordWeight configure hybrid fusion. Both zero
	// means "use defaults"; otherwise they must sum to 1.0.
	SemanticWeight float64
	KeywordWeight  float64
}

// Searcher provides semantic, keyword and hybrid search over chunks of
// active collections.
type Searcher struct {
	collections storage.CollectionRepository
	documents   storage.DocumentRepository
	chunks      storage.ChunkRepository
	embedder    ai.Embedder
	telemetry   *Recorder
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTelemetry attaches a recorder; every search call then appends a log
// entry, fire-and-forget.
func WithTelemetry(recorder *Recorder) Option {
	return func(s *Searcher) error {
		s.telemetry = recorder
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	collections storage.CollectionRepository,
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
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

	s := &Searcher{
		collections: collections,
		documents:   documents,
		chunks:      chunks,
		embedder:    provider.Embedder(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs one search call. See SearchWithMonitor.
func (s *Searcher) Search(ctx context.Context, req Request) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor runs one search call with observation hooks.
//
// The candidate scope is restricted before any scoring: only chunks of
// documents in active collections (intersected with the collection filter,
// the type filter and the date bounds) are candidates. An inactive
// collection's content can never appear in results regardless of score.
func (s *Searcher) SearchWithMonitor(ctx context.Context, req Request, monitor Monitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrInvalidQuery
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeSemantic
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	monitor.Start(req.Query, mode)

	sc, err := s.computeScope(ctx, req.Filters)
	if err != nil {
		return nil, err
	}
	monitor.AfterScopeRestriction(sc.documentIDs)

	var results []*core.SearchResult
	switch mode {
	case ModeSemantic:
		results, err = s.semanticSearch(ctx, req, sc, limit, monitor)
	case ModeKeyword:
		results, err = s.keywordSearch(ctx, req, sc, limit, monitor)
	case ModeHybrid:
		results, err = s.hybridSearch(ctx, req, sc, limit, monitor)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if err != nil {
		return nil, err
	}

	monitor.Finish(results)

	if s.telemetry != nil {
		s.telemetry.Record(req.Query, string(mode), len(results), time.Since(start))
	}

	return results, nil
}

// scope is the resolved candidate set of one search call.
type scope struct {
	documentIDs []core.ID
	documents   map[core.ID]*core.Document
	collections map[core.ID]*core.Collection
}

// computeScope resolves the document candidate set: active collections
// intersected with the collection filter, then documents passing the type
// and date facets.
func (s *Searcher) computeScope(ctx context.Context, filters *core.SearchFilters) (*scope, error) {
	collections, err := s.collections.ListCollections(ctx, false)
	if err != nil {
		return nil, err
	}

	sc := &scope{
		documents:   make(map[core.ID]*core.Document),
		collections: make(map[core.ID]*core.Collection),
	}

	for _, collection := range collections {
		if !collectionInScope(collection, filters) {
			continue
		}
		sc.collections[collection.Id] = collection

		documents, err := s.documents.GetDocumentsByCollection(ctx, collection.Id)
		if err != nil {
			return nil, err
		}
		for _, document := range documents {
			if !documentInScope(document, filters) {
				continue
			}
			sc.documents[document.Id] = document
			sc.documentIDs = append(sc.documentIDs, document.Id)
		}
	}

	return sc, nil
}

// semanticSearch embeds the query and ranks in-scope chunks by cosine
// similarity. Results carry SimilarityScore; Rank is unset.
func (s *Searcher) semanticSearch(ctx context.Context, req Request, sc *scope, limit int, monitor Monitor) ([]*core.SearchResult, error) {
	if len(sc.documentIDs) == 0 {
		return []*core.SearchResult{}, nil
	}

	threshold := DefaultMinSimilarity
	if req.Filters != nil && req.Filters.HasMinSimilarity {
		threshold = req.Filters.MinSimilarity
	}

	vector, err := s.embedder.EmbedText(ctx, req.Query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	chunks, scores, err := s.chunks.FindSimilarChunks(ctx, vector, threshold, sc.documentIDs, limit)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(chunks))
	chunkIDs := make([]core.ID, 0, len(chunks))
	for i, chunk := range chunks {
		result := s.buildResult(chunk, sc)
		result.SimilarityScore = scores[i]
		result.HasSimilarity = true
		results = append(results, result)
		chunkIDs = append(chunkIDs, chunk.Id)
	}
	monitor.AfterSemanticSearch(chunkIDs)

	return results, nil
}

// keywordSearch ranks in-scope chunks by term frequency. Results carry
// Rank and HighlightedContent; SimilarityScore is unset.
func (s *Searcher) keywordSearch(ctx context.Context, req Request, sc *scope, limit int, monitor Monitor) ([]*core.SearchResult, error) {
	if len(sc.documentIDs) == 0 {
		return []*core.SearchResult{}, nil
	}

	parsed := parseKeywordQuery(req.Query)

	chunks, err := s.chunks.GetChunksByDocuments(ctx, sc.documentIDs)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0)
	for _, chunk := range chunks {
		rank, ok := parsed.score(chunk.Content)
		if !ok {
			continue
		}
		result := s.buildResult(chunk, sc)
		result.Rank = rank
		result.HasRank = true
		result.HighlightedContent = parsed.highlight(chunk.Content)
		results = append(results, result)
	}

	// Rank descending, chunk creation order on ties.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Rank != results[j].Rank {
			return results[i].Rank > results[j].Rank
		}
		return results[i].ChunkId < results[j].ChunkId
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	chunkIDs := make([]core.ID, len(results))
	for i, result := range results {
		chunkIDs[i] = result.ChunkId
	}
	monitor.AfterKeywordSearch(chunkIDs)

	return results, nil
}

// buildResult assembles the per-chunk result envelope with document and
// collection display names resolved from the scope.
func (s *Searcher) buildResult(chunk *core.Chunk, sc *scope) *core.SearchResult {
	result := &core.SearchResult{
		ChunkId:    chunk.Id,
		DocumentId: chunk.DocumentId,
		Content:    chunk.Content,
		Metadata:   chunk.Metadata.Clone(),
		CreatedAt:  chunk.CreatedAt,
	}

	if document, ok := sc.documents[chunk.DocumentId]; ok {
		result.DocumentName = document.Filename
		if collection, ok := sc.collections[document.CollectionId]; ok {
			result.CollectionName = collection.Name
		}
	}

	return result
}
