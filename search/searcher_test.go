package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillstone/docbase/ai/mock"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage/badger"
)

// searchFixture seeds a small corpus with hand-picked vectors so cosine
// similarities are predictable. The query vector is (1,0,0):
//
//	guide chunk 1 (0.8, 0.2, 0) -> mapped similarity ~0.985
//	guide chunk 2 (0.2, 0.8, 0) -> mapped similarity ~0.617
type searchFixture struct {
	searcher *Searcher
	repos    *badger.MemoryRepositories
	provider *mock.MockProvider
	manuals  *core.Collection
	archive  *core.Collection
	guide    *core.Document
	report   *core.Document
}

var queryVector = []float32{1, 0, 0}

func newSearchFixture(t *testing.T, opts ...Option) *searchFixture {
	t.Helper()
	ctx := context.Background()

	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(repos.Close)

	provider := mock.NewMockProvider()
	provider.MockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return queryVector, nil
	}

	searcher, err := NewSearcher(repos.Collections, repos.Documents, repos.Chunks, provider, opts...)
	require.NoError(t, err)

	f := &searchFixture{searcher: searcher, repos: repos, provider: provider}

	f.manuals, err = repos.Collections.AddCollection(ctx, &core.Collection{Name: "Manuals", IsActive: true})
	require.NoError(t, err)
	f.archive, err = repos.Collections.AddCollection(ctx, &core.Collection{Name: "Archive", IsActive: true})
	require.NoError(t, err)

	f.guide, err = repos.Documents.AddDocument(ctx, &core.Document{
		CollectionId: f.manuals.Id,
		Filename:     "guide.txt",
		FileType:     "txt",
		Status:       core.StatusProcessing,
	})
	require.NoError(t, err)
	_, err = repos.Chunks.ReplaceDocumentChunks(ctx, f.guide.Id, []*core.Chunk{
		{DocumentId: f.guide.Id, Index: 0, Content: "Install the widget. Configure the widget.", Vector: []float32{0.8, 0.2, 0}},
		{DocumentId: f.guide.Id, Index: 1, Content: "Test the widget.", Vector: []float32{0.2, 0.8, 0}},
	})
	require.NoError(t, err)

	f.report, err = repos.Documents.AddDocument(ctx, &core.Document{
		CollectionId: f.archive.Id,
		Filename:     "report.pdf",
		FileType:     "pdf",
		Status:       core.StatusProcessing,
	})
	require.NoError(t, err)
	_, err = repos.Chunks.ReplaceDocumentChunks(ctx, f.report.Id, []*core.Chunk{
		{DocumentId: f.report.Id, Index: 0, Content: "Archived widget specification.", Vector: []float32{0.9, 0.1, 0}},
	})
	require.NoError(t, err)

	return f
}

func (f *searchFixture) deactivateArchive(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	collection, err := f.repos.Collections.GetCollection(ctx, f.archive.Id)
	require.NoError(t, err)
	collection.IsActive = false
	_, err = f.repos.Collections.UpdateCollection(ctx, collection)
	require.NoError(t, err)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	f := newSearchFixture(t)

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := f.searcher.Search(context.Background(), Request{Query: query, Mode: ModeKeyword})
		assert.ErrorIs(t, err, ErrInvalidQuery, "query %q", query)
	}
}

func TestSearchUnknownMode(t *testing.T) {
	f := newSearchFixture(t)

	_, err := f.searcher.Search(context.Background(), Request{Query: "widget", Mode: Mode("fuzzy")})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestSemanticSearchDefaultThreshold(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), Request{Query: "widget", Mode: ModeSemantic})
	require.NoError(t, err)

	// chunk 2 of the guide (~0.62) falls below the 0.7 default
	require.Len(t, results, 2)
	for _, result := range results {
		assert.True(t, result.HasSimilarity)
		assert.False(t, result.HasRank)
		assert.GreaterOrEqual(t, result.SimilarityScore, 0.7)
	}
	// ordered by similarity descending
	assert.GreaterOrEqual(t, results[0].SimilarityScore, results[1].SimilarityScore)
}

func TestSemanticSearchThresholdOverride(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	strict, err := f.searcher.Search(ctx, Request{
		Query: "widget",
		Mode:  ModeSemantic,
		Filters: &core.SearchFilters{
			CollectionIds:    []core.ID{f.manuals.Id},
			MinSimilarity:    0.99,
			HasMinSimilarity: true,
		},
	})
	require.NoError(t, err)
	assert.Empty(t, strict)

	loose, err := f.searcher.Search(ctx, Request{
		Query:   "widget",
		Mode:    ModeSemantic,
		Filters: &core.SearchFilters{MinSimilarity: 0.0, HasMinSimilarity: true},
	})
	require.NoError(t, err)
	assert.Len(t, loose, 3)
}

func TestSemanticSearchResultEnvelope(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), Request{
		Query:   "widget",
		Mode:    ModeSemantic,
		Filters: &core.SearchFilters{CollectionIds: []core.ID{f.manuals.Id}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "guide.txt", results[0].DocumentName)
	assert.Equal(t, "Manuals", results[0].CollectionName)
	assert.NotZero(t, results[0].ChunkId)
	assert.Equal(t, f.guide.Id, results[0].DocumentId)
}

func TestSemanticProviderUnavailable(t *testing.T) {
	f := newSearchFixture(t)
	f.provider.MockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}

	_, err := f.searcher.Search(context.Background(), Request{Query: "widget", Mode: ModeSemantic})
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = f.searcher.Search(context.Background(), Request{Query: "widget", Mode: ModeHybrid})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestKeywordSearchRanksByFrequency(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), Request{
		Query:   "widget",
		Mode:    ModeKeyword,
		Filters: &core.SearchFilters{CollectionIds: []core.ID{f.manuals.Id}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// first guide chunk mentions widget twice, second once
	assert.Equal(t, 2.0, results[0].Rank)
	assert.Equal(t, 1.0, results[1].Rank)
	for _, result := range results {
		assert.True(t, result.HasRank)
		assert.False(t, result.HasSimilarity)
		assert.Contains(t, result.HighlightedContent, "<mark>widget</mark>")
	}
}

func TestKeywordSearchMalformedBooleanDegrades(t *testing.T) {
	f := newSearchFixture(t)

	// degrades to a substring match of the whole query, matching nothing
	results, err := f.searcher.Search(context.Background(), Request{Query: "widget OR gadget", Mode: ModeKeyword})
	require.NoError(t, err)
	assert.Empty(t, results)

	// unbalanced quote degrades to a plain "widget" substring match
	results, err = f.searcher.Search(context.Background(), Request{Query: `"widget`, Mode: ModeKeyword})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestKeywordSearchTieBreakByCreationOrder(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), Request{Query: "the widget", Mode: ModeKeyword})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 2)

	for i := 1; i < len(results); i++ {
		if results[i-1].Rank == results[i].Rank {
			assert.Less(t, results[i-1].ChunkId, results[i].ChunkId)
		}
	}
}

func TestHybridSearchFormula(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()
	scopeFilter := &core.SearchFilters{CollectionIds: []core.ID{f.manuals.Id}}

	semantic, err := f.searcher.Search(ctx, Request{Query: "widget", Mode: ModeSemantic, Filters: scopeFilter})
	require.NoError(t, err)
	keyword, err := f.searcher.Search(ctx, Request{Query: "widget", Mode: ModeKeyword, Filters: scopeFilter})
	require.NoError(t, err)

	semanticScores := make(map[core.ID]float64)
	for _, result := range semantic {
		semanticScores[result.ChunkId] = result.SimilarityScore
	}
	var maxRank float64
	for _, result := range keyword {
		if result.Rank > maxRank {
			maxRank = result.Rank
		}
	}
	keywordScores := make(map[core.ID]float64)
	for _, result := range keyword {
		keywordScores[result.ChunkId] = result.Rank / maxRank
	}

	hybrid, err := f.searcher.Search(ctx, Request{
		Query:          "widget",
		Mode:           ModeHybrid,
		Filters:        scopeFilter,
		SemanticWeight: 0.5,
		KeywordWeight:  0.5,
	})
	require.NoError(t, err)
	require.Len(t, hybrid, 2)

	for _, result := range hybrid {
		expected := 0.5*semanticScores[result.ChunkId] + 0.5*keywordScores[result.ChunkId]
		assert.True(t, result.HasRank)
		assert.InDelta(t, expected, result.Rank, 1e-9)
	}
	assert.GreaterOrEqual(t, hybrid[0].Rank, hybrid[1].Rank)
}

func TestHybridSearchDefaultWeights(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), Request{Query: "widget", Mode: ModeHybrid})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestHybridSearchInvalidWeights(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	for _, weights := range [][2]float64{
		{0.5, 0.6},
		{0.9, 0.2},
		{-0.5, 1.5},
		{1.0, 0.001},
	} {
		_, err := f.searcher.Search(ctx, Request{
			Query:          "widget",
			Mode:           ModeHybrid,
			SemanticWeight: weights[0],
			KeywordWeight:  weights[1],
		})
		assert.ErrorIs(t, err, ErrInvalidWeights, "weights %v", weights)
	}
}

func TestDeactivatedCollectionExcludedFromAllModes(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	// archive content is findable while active
	results, err := f.searcher.Search(ctx, Request{Query: "archived", Mode: ModeKeyword})
	require.NoError(t, err)
	require.Len(t, results, 1)

	f.deactivateArchive(t)

	loose := &core.SearchFilters{MinSimilarity: 0.0, HasMinSimilarity: true}
	for _, mode := range []Mode{ModeSemantic, ModeKeyword, ModeHybrid} {
		results, err := f.searcher.Search(ctx, Request{Query: "widget", Mode: mode, Filters: loose})
		require.NoError(t, err, "mode %s", mode)
		for _, result := range results {
			assert.NotEqual(t, "Archive", result.CollectionName, "mode %s leaked inactive content", mode)
			assert.NotEqual(t, f.report.Id, result.DocumentId, "mode %s leaked inactive content", mode)
		}
	}
}

func TestCollectionFilterRestrictsScope(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), Request{
		Query:   "widget",
		Mode:    ModeKeyword,
		Filters: &core.SearchFilters{CollectionIds: []core.ID{f.archive.Id}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Archive", results[0].CollectionName)
}

func TestDocumentTypeFilter(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), Request{
		Query:   "widget",
		Mode:    ModeKeyword,
		Filters: &core.SearchFilters{DocumentTypes: []string{"pdf"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, f.report.Id, results[0].DocumentId)
}

func TestDateFilterBoundsInclusive(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	guide, err := f.repos.Documents.GetDocument(ctx, f.guide.Id)
	require.NoError(t, err)

	inRange, err := f.searcher.Search(ctx, Request{
		Query: "widget",
		Mode:  ModeKeyword,
		Filters: &core.SearchFilters{
			CollectionIds: []core.ID{f.manuals.Id},
			DateFrom:      guide.CreatedAt,
			DateTo:        guide.CreatedAt,
		},
	})
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	outOfRange, err := f.searcher.Search(ctx, Request{
		Query: "widget",
		Mode:  ModeKeyword,
		Filters: &core.SearchFilters{
			CollectionIds: []core.ID{f.manuals.Id},
			DateTo:        guide.CreatedAt.Add(-time.Hour),
		},
	})
	require.NoError(t, err)
	assert.Empty(t, outOfRange)
}

func TestSearchLimit(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), Request{
		Query: "widget",
		Mode:  ModeKeyword,
		Limit: 1,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchRecordsTelemetry(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(repos.Close)

	recorder, err := NewRecorder(repos.SearchLogs)
	require.NoError(t, err)
	t.Cleanup(recorder.Release)

	provider := mock.NewMockProvider()
	searcher, err := NewSearcher(repos.Collections, repos.Documents, repos.Chunks, provider, WithTelemetry(recorder))
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), Request{Query: "anything", Mode: ModeKeyword})
	require.NoError(t, err)
	recorder.Wait()

	logs, err := repos.SearchLogs.GetSearchLogsByDateRange(context.Background(),
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "anything", logs[0].Query)
	assert.Equal(t, "keyword", logs[0].SearchType)
	assert.Zero(t, logs[0].ResultsCount)
}

func TestSearchMonitorHooks(t *testing.T) {
	f := newSearchFixture(t)

	monitor := &recordingMonitor{}
	results, err := f.searcher.SearchWithMonitor(context.Background(),
		Request{Query: "widget", Mode: ModeKeyword}, monitor)
	require.NoError(t, err)

	assert.Equal(t, "widget", monitor.query)
	assert.Equal(t, ModeKeyword, monitor.mode)
	assert.Len(t, monitor.scope, 2)
	assert.Len(t, monitor.finished, len(results))
}

type recordingMonitor struct {
	query    string
	mode     Mode
	scope    []core.ID
	finished []*core.SearchResult
}

func (m *recordingMonitor) Start(query string, mode Mode) {
	m.query = query
	m.mode = mode
}
func (m *recordingMonitor) AfterScopeRestriction(ids []core.ID) { m.scope = ids }
func (m *recordingMonitor) AfterSemanticSearch(_ []core.ID)     {}
func (m *recordingMonitor) AfterKeywordSearch(_ []core.ID)      {}
func (m *recordingMonitor) Finish(results []*core.SearchResult) { m.finished = results }
