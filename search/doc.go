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


// Package search provides semantic, keyword and hybrid retrieval over
// document chunks.
//
// The Searcher type implements three search modes behind one contract:
//   - Semantic search using vector embeddings and cosine similarity
//   - Keyword search with term-frequency ranking and match highlighting
//   - Hybrid search fusing both rankings with configurable weights
//
// All modes restrict the candidate scope to active collections before any
// scoring. The package also carries the layers around search: result
// filtering, fixed-page and incremental pagination, fire-and-forget
// telemetry with aggregation, and CSV export.
package search
