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


// Package docbase is a document ingestion and retrieval engine. Files
// uploaded into named collections are extracted, chunked and embedded;
// semantic, keyword and hybrid search run over the resulting chunks.
//
// Database is the assembly point: it owns the storage backend, the
// repositories, the blob store and the embedding provider, and hands out
// the registry, pipeline and searcher built on top of them.
package docbase

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/quillstone/docbase/ai"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/ai/openai"
	"github.com/quillstone/docbase/blob"
	"github.com/quillstone/docbase/ingestion"
	"github.com/quillstone/docbase/registry"
	"github.com/quillstone/docbase/search"
	"github.com/quillstone/docbase/storage"
	"github.com/quillstone/docbase/storage/badger"
)

type Database struct {
	backend        *badger.Backend
	collectionRepo storage.CollectionRepository
	documentRepo   storage.DocumentRepository
	chunkRepo      storage.ChunkRepository
	searchLogRepo  storage.SearchLogRepository
	blobs          blob.Store
	provider       ai.Provider
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects a pre-built embedding provider instead of the
// OpenAI-compatible default. Used by tests and embedders with custom
// lifecycles.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// NewDatabase opens (or creates) a database rooted at dataDir. Records
// live in dataDir/records, uploaded file content in dataDir/blobs.
func NewDatabase(dataDir string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filepath.Join(dataDir, "records"), false)
	if err != nil {
		return nil, err
	}

	collectionRepo, err := badger.NewCollectionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	documentRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		collectionRepo.Close()
		backend.Close()
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		documentRepo.Close()
		collectionRepo.Close()
		backend.Close()
		return nil, err
	}

	searchLogRepo, err := badger.NewSearchLogRepository(backend)
	if err != nil {
		chunkRepo.Close()
		documentRepo.Close()
		collectionRepo.Close()
		backend.Close()
		return nil, err
	}

	blobs, err := blob.NewLocalStore(filepath.Join(dataDir, "blobs"))
	if err != nil {
		searchLogRepo.Close()
		chunkRepo.Close()
		documentRepo.Close()
		collectionRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			searchLogRepo.Close()
			chunkRepo.Close()
			documentRepo.Close()
			collectionRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:        backend,
		collectionRepo: collectionRepo,
		documentRepo:   documentRepo,
		chunkRepo:      chunkRepo,
		searchLogRepo:  searchLogRepo,
		blobs:          blobs,
		provider:       provider,
		logger:         slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing embedding provider", "err", err)
	}

	if err := db.searchLogRepo.Close(); err != nil {
		db.logger.Error("error closing search log repository", "err", err)
		return err
	}
	if err := db.chunkRepo.Close(); err != nil {
		db.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := db.documentRepo.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := db.collectionRepo.Close(); err != nil {
		db.logger.Error("error closing collection repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) CollectionRepository() storage.CollectionRepository {
	return db.collectionRepo
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.documentRepo
}

func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunkRepo
}

func (db *Database) SearchLogRepository() storage.SearchLogRepository {
	return db.searchLogRepo
}

func (db *Database) BlobStore() blob.Store {
	return db.blobs
}

// NewRegistry creates a collection registry over the database.
func (db *Database) NewRegistry() *registry.Registry {
	return registry.NewRegistry(db.collectionRepo, db.documentRepo)
}

// NewIngestionPipeline creates an ingestion pipeline over the database.
// Callers own the pipeline lifecycle and must call Release when done.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.collectionRepo, db.documentRepo, db.chunkRepo, db.provider, db.blobs, opts...)
}

// UploadAndIngest uploads files into a collection and processes them to
// completion, returning per-file outcomes. It runs a short-lived pipeline
// and blocks until processing finishes; callers that need progress
// reporting or batch control should use NewIngestionPipeline directly.
func (db *Database) UploadAndIngest(ctx context.Context, collectionID core.ID, uploads []ingestion.Upload, createdBy string) ([]ingestion.UploadResult, error) {
	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	results, err := pipeline.UploadAndIngest(ctx, collectionID, uploads, createdBy)
	if err != nil {
		return nil, err
	}
	pipeline.Wait()
	return results, nil
}

// NewSearcher creates a searcher over the database.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.collectionRepo, db.documentRepo, db.chunkRepo, db.provider, opts...)
}

// NewTelemetryRecorder creates a search telemetry recorder over the database.
// Callers own the recorder lifecycle and must call Release when done.
func (db *Database) NewTelemetryRecorder() (*search.Recorder, error) {
	return search.NewRecorder(db.searchLogRepo)
}
