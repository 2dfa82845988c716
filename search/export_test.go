package search

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillstone/docbase/core"
)

func TestExportCSV(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	results := []*core.SearchResult{
		{
			DocumentName:    "guide.txt",
			CollectionName:  "Manuals",
			Content:         "Install the widget, then test it",
			SimilarityScore: 0.9123,
			HasSimilarity:   true,
			CreatedAt:       created,
		},
		{
			DocumentName:   "notes.md",
			CollectionName: "Manuals",
			Content:        "keyword hit",
			Rank:           2,
			HasRank:        true,
			CreatedAt:      created,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, results))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"document_name", "collection_name", "content", "score", "created"}, records[0])
	assert.Equal(t, []string{"guide.txt", "Manuals", "Install the widget, then test it", "0.9123", "2026-03-14"}, records[1])
	assert.Equal(t, []string{"notes.md", "Manuals", "keyword hit", "2.0000", "2026-03-14"}, records[2])
}

func TestExportCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1) // header only
}
