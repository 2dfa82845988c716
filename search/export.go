package search

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/quillstone/docbase/core"
)

// ExportCSV writes search results as CSV with the columns document_name,
// collection_name, content, score, created. The score column carries the
// similarity score when present, otherwise the rank, otherwise empty.
func ExportCSV(w io.Writer, results []*core.SearchResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"document_name", "collection_name", "content", "score", "created"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, result := range results {
		score := ""
		switch {
		case result.HasSimilarity:
			score = strconv.FormatFloat(result.SimilarityScore, 'f', 4, 64)
		case result.HasRank:
			score = strconv.FormatFloat(result.Rank, 'f', 4, 64)
		}

		record := []string{
			result.DocumentName,
			result.CollectionName,
			result.Content,
			score,
			result.CreatedAt.UTC().Format("2006-01-02"),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
