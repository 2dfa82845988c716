package search

import (
	"strings"

	"github.com/quillstone/docbase/core"
)

// Filters narrow the candidate scope before scoring: OR within a facet,
// AND across facets. They are applied to documents, so an excluded
// document's chunks are never visited, let alone ranked.

// documentInScope reports whether a document passes the type and date
// facets. Collection membership is resolved earlier, at collection scope.
func documentInScope(document *core.Document, filters *core.SearchFilters) bool {
	if filters == nil {
		return true
	}

	if len(filters.DocumentTypes) > 0 {
		match := false
		for _, t := range filters.DocumentTypes {
			if strings.EqualFold(t, document.FileType) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	// Date bounds are inclusive on both ends.
	if !filters.DateFrom.IsZero() && document.CreatedAt.Before(filters.DateFrom) {
		return false
	}
	if !filters.DateTo.IsZero() && document.CreatedAt.After(filters.DateTo) {
		return false
	}

	return true
}

// collectionInScope reports whether a collection passes the collection ID
// facet. The active flag is checked separately and unconditionally.
func collectionInScope(collection *core.Collection, filters *core.SearchFilters) bool {
	if filters == nil || len(filters.CollectionIds) == 0 {
		return true
	}
	for _, id := range filters.CollectionIds {
		if id == collection.Id {
			return true
		}
	}
	return false
}

// FilterDocuments returns the documents passing the type and date facets.
// Exposed for callers that materialize their own candidate lists.
func FilterDocuments(documents []*core.Document, filters *core.SearchFilters) []*core.Document {
	if filters == nil {
		return documents
	}
	kept := make([]*core.Document, 0, len(documents))
	for _, document := range documents {
		if documentInScope(document, filters) {
			kept = append(kept, document)
		}
	}
	return kept
}
