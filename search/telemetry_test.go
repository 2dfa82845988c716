package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage/badger"
)

func newTestRecorder(t *testing.T) (*Recorder, *badger.MemoryRepositories) {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(repos.Close)

	recorder, err := NewRecorder(repos.SearchLogs)
	require.NoError(t, err)
	t.Cleanup(recorder.Release)
	return recorder, repos
}

func TestRecorderAppendsAsync(t *testing.T) {
	recorder, repos := newTestRecorder(t)

	recorder.Record("widget", "semantic", 3, 42*time.Millisecond)
	recorder.Wait()

	logs, err := repos.SearchLogs.GetSearchLogsByDateRange(context.Background(),
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 1)

	assert.Equal(t, "widget", logs[0].Query)
	assert.Equal(t, "semantic", logs[0].SearchType)
	assert.Equal(t, 3, logs[0].ResultsCount)
	assert.Equal(t, int64(42), logs[0].ExecutionTimeMS)
}

func TestAggregateEmptyRange(t *testing.T) {
	recorder, _ := newTestRecorder(t)

	agg, err := recorder.Aggregate(context.Background(),
		time.Now().Add(-time.Hour), time.Now(), 10)
	require.NoError(t, err)

	assert.Zero(t, agg.TotalSearches)
	assert.Zero(t, agg.AvgExecutionMS)
	assert.Empty(t, agg.TypeShares)
	assert.Empty(t, agg.PopularQueries)
}

func TestAggregateStatistics(t *testing.T) {
	recorder, _ := newTestRecorder(t)

	recorder.Record("widget", "semantic", 2, 10*time.Millisecond)
	recorder.Record("widget", "keyword", 2, 20*time.Millisecond)
	recorder.Record("gadget", "semantic", 0, 30*time.Millisecond)
	recorder.Record("widget", "hybrid", 5, 40*time.Millisecond)
	recorder.Wait()

	agg, err := recorder.Aggregate(context.Background(),
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 10)
	require.NoError(t, err)

	assert.Equal(t, 4, agg.TotalSearches)
	assert.InDelta(t, 25.0, agg.AvgExecutionMS, 0.001)
	assert.Equal(t, 2, agg.TypeCounts["semantic"])
	assert.Equal(t, 1, agg.TypeCounts["keyword"])
	assert.Equal(t, 1, agg.TypeCounts["hybrid"])
	assert.InDelta(t, 0.5, agg.TypeShares["semantic"], 0.001)
	assert.InDelta(t, 0.25, agg.TypeShares["keyword"], 0.001)

	require.Len(t, agg.PopularQueries, 2)
	assert.Equal(t, QueryCount{Query: "widget", Count: 3}, agg.PopularQueries[0])
	assert.Equal(t, QueryCount{Query: "gadget", Count: 1}, agg.PopularQueries[1])
}

func TestAggregatePopularQueryTiesByRecency(t *testing.T) {
	_, repos := newTestRecorder(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	appendLog := func(query string, at time.Time) {
		t.Helper()
		_, err := repos.SearchLogs.AppendSearchLog(ctx, &core.SearchLog{
			Query:      query,
			SearchType: "keyword",
			CreatedAt:  at,
		})
		require.NoError(t, err)
	}
	appendLog("older", base)
	appendLog("newer", base.Add(time.Second))

	recorder, err := NewRecorder(repos.SearchLogs)
	require.NoError(t, err)
	defer recorder.Release()

	agg, err := recorder.Aggregate(ctx, base.Add(-time.Second), base.Add(time.Minute), 1)
	require.NoError(t, err)

	// equal counts, the more recent query wins the single top slot
	require.Len(t, agg.PopularQueries, 1)
	assert.Equal(t, "newer", agg.PopularQueries[0].Query)
}
