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


package badger

import "github.com/quillstone/docbase/storage"

// MemoryRepositories bundles in-memory repositories for testing.
type MemoryRepositories struct {
	Collections storage.CollectionRepository
	Documents   storage.DocumentRepository
	Chunks      storage.ChunkRepository
	SearchLogs  storage.SearchLogRepository
	Backend     *Backend
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must call Close when done.
func NewMemoryRepositories() (*MemoryRepositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	collections, err := NewCollectionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	documents, err := NewDocumentRepository(backend)
	if err != nil {
		collections.Close()
		backend.Close()
		return nil, err
	}

	chunks, err := NewChunkRepository(backend)
	if err != nil {
		documents.Close()
		collections.Close()
		backend.Close()
		return nil, err
	}

	searchLogs, err := NewSearchLogRepository(backend)
	if err != nil {
		chunks.Close()
		documents.Close()
		collections.Close()
		backend.Close()
		return nil, err
	}

	return &MemoryRepositories{
		Collections: collections,
		Documents:   documents,
		Chunks:      chunks,
		SearchLogs:  searchLogs,
		Backend:     backend,
	}, nil
}

// Close closes all repositories and the backend.
func (m *MemoryRepositories) Close() {
	m.SearchLogs.Close()
	m.Chunks.Close()
	m.Documents.Close()
	m.Collections.Close()
	m.Backend.Close()
}
