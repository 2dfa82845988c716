package search

import (
	"sort"

	"github.com/quillstone/docbase/core"
)

// DefaultPageSize is the fixed-page size applied when the caller doesn't
// set one.
const DefaultPageSize = 10

// Page is one fixed-size window over a materialized result list.
type Page struct {
	Results    []*core.SearchResult
	PageNumber int // 1-based
	PageSize   int
	TotalCount int
	TotalPages int
	HasMore    bool
}

// Paginate returns the requested fixed-size page of a materialized result
// list. Page numbers are 1-based; out-of-range pages return an empty page
// with the counts still populated. Concatenating pages 1..TotalPages yields
// exactly the input list, in order, with no duplicates.
func Paginate(results []*core.SearchResult, pageNumber, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageNumber < 1 {
		pageNumber = 1
	}

	totalPages := (len(results) + pageSize - 1) / pageSize

	page := Page{
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalCount: len(results),
		TotalPages: totalPages,
	}

	start := (pageNumber - 1) * pageSize
	if start >= len(results) {
		page.Results = []*core.SearchResult{}
		return page
	}

	end := start + pageSize
	if end > len(results) {
		end = len(results)
	}
	page.Results = results[start:end]
	page.HasMore = end < len(results)
	return page
}

// Pager yields successive pages for incremental loading. As long as the
// underlying result list is not mutated, consecutive Next calls never
// duplicate and never skip an item.
type Pager struct {
	results  []*core.SearchResult
	pageSize int
	offset   int
}

// NewPager creates a pager over a materialized result list.
func NewPager(results []*core.SearchResult, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{results: results, pageSize: pageSize}
}

// Next returns the next page and whether more pages remain after it.
// After exhaustion it keeps returning an empty slice and false.
func (p *Pager) Next() ([]*core.SearchResult, bool) {
	if p.offset >= len(p.results) {
		return []*core.SearchResult{}, false
	}

	end := p.offset + p.pageSize
	if end > len(p.results) {
		end = len(p.results)
	}
	page := p.results[p.offset:end]
	p.offset = end
	return page, end < len(p.results)
}

// Loaded returns how many results have been handed out so far.
func (p *Pager) Loaded() int {
	return p.offset
}

// Selection tracks per-page result selection for bulk actions. Selections
// are scoped to the page they were made on: changing the page clears them.
// Stale cross-page selections feeding a bulk delete are a correctness
// hazard, so the clearing is part of the contract, not a UI nicety.
type Selection struct {
	page int
	ids  map[core.ID]struct{}
}

// NewSelection creates an empty selection on page 1.
func NewSelection() *Selection {
	return &Selection{page: 1, ids: make(map[core.ID]struct{})}
}

// SetPage moves the selection to a page, clearing it if the page changed.
func (s *Selection) SetPage(page int) {
	if page == s.page {
		return
	}
	s.page = page
	s.ids = make(map[core.ID]struct{})
}

// Page returns the page the selection is scoped to.
func (s *Selection) Page() int {
	return s.page
}

// Select adds an ID to the selection.
func (s *Selection) Select(id core.ID) {
	s.ids[id] = struct{}{}
}

// Deselect removes an ID from the selection.
func (s *Selection) Deselect(id core.ID) {
	delete(s.ids, id)
}

// Selected reports whether an ID is selected.
func (s *Selection) Selected(id core.ID) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected IDs in ascending order.
func (s *Selection) IDs() []core.ID {
	ids := make([]core.ID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clear removes all selections without changing the page.
func (s *Selection) Clear() {
	s.ids = make(map[core.ID]struct{})
}
