package ingestion

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillstone/docbase/core"
)

func TestProgressTracker_Lifecycle(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.Track(1, "guide.txt")
	tracker.Track(2, "report.pdf")

	snapshot := tracker.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, StageQueued, snapshot[0].Stage)
	assert.Equal(t, "guide.txt", snapshot[0].Filename)

	tracker.Advance(1, StageEmbedding)
	tracker.Fail(2, "could not extract text from pdf file")

	snapshot = tracker.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, StageEmbedding, snapshot[0].Stage)
	assert.Equal(t, StageFailed, snapshot[1].Stage)
	assert.Equal(t, "could not extract text from pdf file", snapshot[1].Error)

	tracker.Forget(1)
	snapshot = tracker.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, core.ID(2), snapshot[0].DocumentId)
}

func TestProgressTracker_IgnoresUnknownDocuments(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.Advance(42, StageChunking)
	tracker.Fail(42, "boom")
	tracker.Forget(42)

	assert.Empty(t, tracker.Snapshot())
}

func TestProgressTracker_SnapshotOrdering(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.Track(30, "c.txt")
	tracker.Track(10, "a.txt")
	tracker.Track(20, "b.txt")

	snapshot := tracker.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, core.ID(10), snapshot[0].DocumentId)
	assert.Equal(t, core.ID(20), snapshot[1].DocumentId)
	assert.Equal(t, core.ID(30), snapshot[2].DocumentId)
}

func TestProgressTracker_Concurrent(t *testing.T) {
	tracker := NewProgressTracker()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id core.ID) {
			defer wg.Done()
			tracker.Track(id, "file")
			tracker.Advance(id, StageStoring)
		}(core.ID(i))
	}
	wg.Wait()

	snapshot := tracker.Snapshot()
	require.Len(t, snapshot, 50)
	for _, entry := range snapshot {
		assert.Equal(t, StageStoring, entry.Stage)
	}
}
