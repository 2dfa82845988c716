package docbase

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillstone/docbase/ai/mock"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/ingestion"
	"github.com/quillstone/docbase/search"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test_db"), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase(t *testing.T) {
	db := newTestDatabase(t)

	assert.NotNil(t, db.CollectionRepository())
	assert.NotNil(t, db.DocumentRepository())
	assert.NotNil(t, db.ChunkRepository())
	assert.NotNil(t, db.SearchLogRepository())
	assert.NotNil(t, db.BlobStore())
	assert.NotNil(t, db.backend)
	assert.NotNil(t, db.logger)
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(t.TempDir(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)

	assert.NoError(t, db.Close())
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db := newTestDatabase(t)

	t.Run("can create registry", func(t *testing.T) {
		assert.NotNil(t, db.NewRegistry())
	})

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := db.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := db.NewSearcher()
		require.NoError(t, err)
		require.NotNil(t, searcher)
	})

	t.Run("can create telemetry recorder", func(t *testing.T) {
		recorder, err := db.NewTelemetryRecorder()
		require.NoError(t, err)
		require.NotNil(t, recorder)
		recorder.Release()
	})
}

func TestDatabase_EndToEnd(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	collection, err := db.NewRegistry().Create(ctx, "Manuals", "product manuals", nil)
	require.NoError(t, err)

	results, err := db.UploadAndIngest(ctx, collection.Id, []ingestion.Upload{
		{Filename: "guide.txt", Content: []byte("Install the widget. Configure the widget. Test the widget.")},
	}, "tester")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	document, err := db.DocumentRepository().GetDocument(ctx, results[0].DocumentId)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, document.Status)
	assert.Positive(t, document.ChunkCount)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)

	hits, err := searcher.Search(ctx, search.Request{Query: "widget", Mode: search.ModeKeyword})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Manuals", hits[0].CollectionName)
	assert.Equal(t, "guide.txt", hits[0].DocumentName)
	assert.Contains(t, hits[0].HighlightedContent, "<mark>")
}
