package search

import "github.com/quillstone/docbase/core"

// Monitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type Monitor interface {
	Start(query string, mode Mode)
	AfterScopeRestriction(documentIDs []core.ID)
	AfterSemanticSearch(chunkIDs []core.ID)
	AfterKeywordSearch(chunkIDs []core.ID)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Mode)            {}
func (n *noopMonitor) AfterScopeRestriction(_ []core.ID) {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.ID)   {}
func (n *noopMonitor) AfterKeywordSearch(_ []core.ID)    {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)     {}
