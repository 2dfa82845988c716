package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillstone/docbase/core"
)

func makeResults(n int) []*core.SearchResult {
	results := make([]*core.SearchResult, n)
	for i := range results {
		results[i] = &core.SearchResult{
			ChunkId: core.ID(i + 1),
			Content: fmt.Sprintf("result %d", i+1),
		}
	}
	return results
}

func TestPaginateConcatenationInvariant(t *testing.T) {
	results := makeResults(23)

	var collected []*core.SearchResult
	first := Paginate(results, 1, 10)
	assert.Equal(t, 23, first.TotalCount)
	assert.Equal(t, 3, first.TotalPages)

	for page := 1; page <= first.TotalPages; page++ {
		collected = append(collected, Paginate(results, page, 10).Results...)
	}

	require.Len(t, collected, len(results))
	for i := range results {
		assert.Equal(t, results[i].ChunkId, collected[i].ChunkId)
	}
}

func TestPaginateOutOfRange(t *testing.T) {
	results := makeResults(5)

	page := Paginate(results, 7, 10)
	assert.Empty(t, page.Results)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasMore)
}

func TestPaginateDefaults(t *testing.T) {
	results := makeResults(15)

	page := Paginate(results, 0, 0)
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Len(t, page.Results, DefaultPageSize)
	assert.True(t, page.HasMore)
}

func TestPagerNoDuplicatesNoSkips(t *testing.T) {
	results := makeResults(27)
	pager := NewPager(results, 10)

	seen := make(map[core.ID]bool)
	total := 0
	for {
		page, more := pager.Next()
		for _, result := range page {
			assert.False(t, seen[result.ChunkId], "duplicate chunk %d", result.ChunkId)
			seen[result.ChunkId] = true
			total++
		}
		if !more {
			break
		}
	}

	assert.Equal(t, len(results), total)
	assert.Equal(t, len(results), pager.Loaded())

	// exhausted pager keeps returning empty
	page, more := pager.Next()
	assert.Empty(t, page)
	assert.False(t, more)
}

func TestSelectionClearedOnPageChange(t *testing.T) {
	selection := NewSelection()
	selection.Select(1)
	selection.Select(2)
	require.Equal(t, []core.ID{1, 2}, selection.IDs())

	// same page keeps the selection
	selection.SetPage(1)
	assert.Equal(t, []core.ID{1, 2}, selection.IDs())

	// page change clears it
	selection.SetPage(2)
	assert.Empty(t, selection.IDs())
	assert.Equal(t, 2, selection.Page())

	selection.Select(7)
	assert.True(t, selection.Selected(7))
	selection.Deselect(7)
	assert.False(t, selection.Selected(7))
}
