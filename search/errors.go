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

import "errors"

var (
	// ErrCollectionRepositoryRequired is returned when a collection repository is not provided.
	ErrCollectionRepositoryRequired = errors.New("collection repository required")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrSearchLogRepositoryRequired is returned when a search log repository is not provided.
	ErrSearchLogRepositoryRequired = errors.New("search log repository required")

	// ErrInvalidQuery is returned for empty or whitespace-only queries.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownMode is returned for an unrecognized search mode.
	ErrUnknownMode = errors.New("unknown search mode")

	// ErrInvalidWeights is returned when hybrid weights don't sum to 1.0.
	ErrInvalidWeights = errors.New("hybrid weights must sum to 1.0")

	// ErrProviderUnavailable is returned when the embedding service cannot
	// serve a query embedding.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
)
