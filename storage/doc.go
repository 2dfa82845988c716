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


// Package storage provides the storage abstraction layer for docbase.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic. It allows different storage backends
// (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - CollectionRepository: collection lifecycle and name uniqueness
//   - DocumentRepository: document records and their derived counters
//   - ChunkRepository: chunk persistence and similarity scans
//   - SearchLogRepository: append-only search telemetry
//
// # Consistency
//
// Derived values (a collection's DocumentCount/TotalChunks, a document's
// ChunkCount) are maintained inside the same transaction as the mutation
// that changes them. Cascading deletes (collection -> documents -> chunks)
// are likewise single transactions.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and
// timeout support.
package storage
