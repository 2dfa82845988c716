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
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage"
)

// Recorder appends search telemetry asynchronously. A telemetry write
// failure is logged and swallowed; it never blocks or fails the search
// call that produced it.
type Recorder struct {
	logs   storage.SearchLogRepository
	pool   *ants.Pool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewRecorder creates a telemetry recorder over the search log repository.
func NewRecorder(logs storage.SearchLogRepository) (*Recorder, error) {
	if logs == nil {
		return nil, ErrSearchLogRepositoryRequired
	}

	// Telemetry writes are tiny; one worker keeps them ordered.
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		logs:   logs,
		pool:   pool,
		logger: slog.Default().With("component", "search-telemetry"),
	}, nil
}

// Record queues one telemetry entry, fire-and-forget.
func (r *Recorder) Record(query, searchType string, resultsCount int, elapsed time.Duration) {
	entry := &core.SearchLog{
		Query:           query,
		SearchType:      searchType,
		ResultsCount:    resultsCount,
		ExecutionTimeMS: elapsed.Milliseconds(),
		CreatedAt:       time.Now().UTC(),
	}

	r.wg.Add(1)
	err := r.pool.Submit(func() {
		defer r.wg.Done()
		if _, err := r.logs.AppendSearchLog(context.Background(), entry); err != nil {
			r.logger.Warn("failed to append search log", "err", err)
		}
	})
	if err != nil {
		r.wg.Done()
		r.logger.Warn("failed to queue search log", "err", err)
	}
}

// Wait blocks until all queued telemetry writes have finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// Release releases the worker pool.
// The recorder should not be used after calling Release.
func (r *Recorder) Release() {
	r.pool.Release()
}

// QueryCount is one popular-query entry of an aggregate.
type QueryCount struct {
	Query string
	Count int
}

// Aggregate summarizes search activity over a time range.
type Aggregate struct {
	TotalSearches  int
	AvgExecutionMS float64
	TypeCounts     map[string]int
	TypeShares     map[string]float64 // count / total, 0 when total is 0
	PopularQueries []QueryCount       // top-N by frequency, ties by most recent
}

// Aggregate computes search statistics for entries with
// from <= CreatedAt < to. topN bounds the popular-query list; topN <= 0
// means all queries.
func (r *Recorder) Aggregate(ctx context.Context, from, to time.Time, topN int) (*Aggregate, error) {
	entries, err := r.logs.GetSearchLogsByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	agg := &Aggregate{
		TotalSearches: len(entries),
		TypeCounts:    make(map[string]int),
		TypeShares:    make(map[string]float64),
	}

	var totalMS int64
	counts := make(map[string]int)
	lastSeen := make(map[string]time.Time)
	for _, entry := range entries {
		totalMS += entry.ExecutionTimeMS
		agg.TypeCounts[entry.SearchType]++
		counts[entry.Query]++
		if entry.CreatedAt.After(lastSeen[entry.Query]) {
			lastSeen[entry.Query] = entry.CreatedAt
		}
	}

	if agg.TotalSearches > 0 {
		agg.AvgExecutionMS = float64(totalMS) / float64(agg.TotalSearches)
		for searchType, count := range agg.TypeCounts {
			agg.TypeShares[searchType] = float64(count) / float64(agg.TotalSearches)
		}
	}

	agg.PopularQueries = make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		agg.PopularQueries = append(agg.PopularQueries, QueryCount{Query: query, Count: count})
	}
	sort.Slice(agg.PopularQueries, func(i, j int) bool {
		if agg.PopularQueries[i].Count != agg.PopularQueries[j].Count {
			return agg.PopularQueries[i].Count > agg.PopularQueries[j].Count
		}
		return lastSeen[agg.PopularQueries[i].Query].After(lastSeen[agg.PopularQueries[j].Query])
	})
	if topN > 0 && len(agg.PopularQueries) > topN {
		agg.PopularQueries = agg.PopularQueries[:topN]
	}

	return agg, nil
}
