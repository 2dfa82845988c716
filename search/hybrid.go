// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/quillstone/docbase/core"
)

// hybridWeights resolves and validates the fusion weights of a request.
// Both zero means defaults; otherwise the pair must sum to 1.0 within
// tolerance. Non-normalized weights are rejected, never silently rescaled.
func hybridWeights(req Request) (semantic, keyword float64, err error) {
	semantic, keyword = req.SemanticWeight, req.KeywordWeight
	if semantic == 0 && keyword == 0 {
		return DefaultSemanticWeight, DefaultKeywordWeight, nil
	}
	if semantic < 0 || keyword < 0 || math.Abs(semantic+keyword-1.0) > weightTolerance {
		return 0, 0, fmt.Errorf("%w: got %g + %g", ErrInvalidWeights, semantic, keyword)
	}
	return semantic, keyword, nil
}

// hybridSearch fuses semantic and keyword rankings over the same candidate
// scope: combined = semanticWeight*s + keywordWeight*k with both component
// scores normalized to [0,1] and 0 for a missing component. A chunk absent
// from both sub-results is excluded. Results carry Rank = combined.
func (s *Searcher) hybridSearch(ctx context.Context, req Request, sc *scope, limit int, monitor Monitor) ([]*core.SearchResult, error) {
	semanticWeight, keywordWeight, err := hybridWeights(req)
	if err != nil {
		return nil, err
	}

	// Sub-searches run unlimited so fusion sees every candidate; the limit
	// applies to the fused ranking.
	var semanticResults, keywordResults []*core.SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var semErr error
		semanticResults, semErr = s.semanticSearch(gctx, req, sc, 0, monitor)
		return semErr
	})
	g.Go(func() error {
		var kwErr error
		keywordResults, kwErr = s.keywordSearch(gctx, req, sc, 0, monitor)
		return kwErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Cosine similarity is already in [0,1]; keyword ranks are normalized
	// by the best rank of this result set.
	var maxRank float64
	for _, result := range keywordResults {
		if result.Rank > maxRank {
			maxRank = result.Rank
		}
	}

	type fused struct {
		result   *core.SearchResult
		semantic float64
		keyword  float64
	}
	combined := make(map[core.ID]*fused, len(semanticResults)+len(keywordResults))

	for _, result := range semanticResults {
		combined[result.ChunkId] = &fused{result: result, semantic: result.SimilarityScore}
	}
	for _, result := range keywordResults {
		normalized := 0.0
		if maxRank > 0 {
			normalized = result.Rank / maxRank
		}
		if entry, ok := combined[result.ChunkId]; ok {
			entry.keyword = normalized
			entry.result.HighlightedContent = result.HighlightedContent
		} else {
			combined[result.ChunkId] = &fused{result: result, keyword: normalized}
		}
	}

	results := make([]*core.SearchResult, 0, len(combined))
	for _, entry := range combined {
		entry.result.Rank = semanticWeight*entry.semantic + keywordWeight*entry.keyword
		entry.result.HasRank = true
		results = append(results, entry.result)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Rank != results[j].Rank {
			return results[i].Rank > results[j].Rank
		}
		return results[i].ChunkId < results[j].ChunkId
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}
