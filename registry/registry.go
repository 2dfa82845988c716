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


// Package registry manages the lifecycle of document collections.
//
// A collection is the unit of organization and of search scope: documents
// always belong to exactly one collection, and deactivating a collection
// removes its content from every search mode without deleting anything.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage"
)

// Registry coordinates collection operations against storage.
type Registry struct {
	collections storage.CollectionRepository
	documents   storage.DocumentRepository
	logger      *slog.Logger
}

// NewRegistry creates a collection registry over the given repositories.
func NewRegistry(collections storage.CollectionRepository, documents storage.DocumentRepository) *Registry {
	return &Registry{
		collections: collections,
		documents:   documents,
		logger:      slog.Default().With("component", "registry"),
	}
}

// Create adds a new active collection with the given name.
// The name must pass core.ValidateCollectionName and must not collide with
// any existing collection, active or inactive.
func (r *Registry) Create(ctx context.Context, name, description string, metadata core.Metadata) (*core.Collection, error) {
	if err := core.ValidateCollectionName(name); err != nil {
		return nil, err
	}

	collection := &core.Collection{
		Name:        name,
		Description: description,
		IsActive:    true,
		Metadata:    metadata.Clone(),
	}

	created, err := r.collections.AddCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", name, err)
	}

	r.logger.Info("collection created", "id", created.Id, "name", created.Name)
	return created, nil
}

// Update describes a partial update to a collection. Nil fields are left
// unchanged.
type Update struct {
	Name        *string
	Description *string
	Metadata    core.Metadata
}

// Update applies a partial update to a collection.
// A new name is validated and checked for uniqueness; derived counts and
// the active flag are not touched.
func (r *Registry) Update(ctx context.Context, id core.ID, update Update) (*core.Collection, error) {
	collection, err := r.collections.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		if err := core.ValidateCollectionName(*update.Name); err != nil {
			return nil, err
		}
		collection.Name = *update.Name
	}
	if update.Description != nil {
		collection.Description = *update.Description
	}
	if update.Metadata != nil {
		collection.Metadata = update.Metadata.Clone()
	}

	updated, err := r.collections.UpdateCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to update collection %d: %w", id, err)
	}
	return updated, nil
}

// SetActive activates or deactivates a collection. Deactivation excludes
// the collection's content from search results; the content itself is kept.
func (r *Registry) SetActive(ctx context.Context, id core.ID, active bool) (*core.Collection, error) {
	collection, err := r.collections.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}

	if collection.IsActive == active {
		return collection, nil
	}

	collection.IsActive = active
	updated, err := r.collections.UpdateCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to update collection %d: %w", id, err)
	}

	r.logger.Info("collection active state changed", "id", id, "active", active)
	return updated, nil
}

// Delete removes a collection together with all of its documents and chunks.
func (r *Registry) Delete(ctx context.Context, id core.ID) error {
	if err := r.collections.DeleteCollection(ctx, id); err != nil {
		return err
	}
	r.logger.Info("collection deleted", "id", id)
	return nil
}

// Get retrieves a collection by ID.
func (r *Registry) Get(ctx context.Context, id core.ID) (*core.Collection, error) {
	return r.collections.GetCollection(ctx, id)
}

// GetByName retrieves a collection by exact name.
func (r *Registry) GetByName(ctx context.Context, name string) (*core.Collection, error) {
	return r.collections.GetCollectionByName(ctx, name)
}

// List retrieves all collections ordered by ID. When includeInactive is
// false, deactivated collections are omitted.
func (r *Registry) List(ctx context.Context, includeInactive bool) ([]*core.Collection, error) {
	return r.collections.ListCollections(ctx, includeInactive)
}

// Stats summarizes the contents of one collection.
type Stats struct {
	DocumentCount       int
	TotalChunks         int
	ProcessingDocuments int
	FailedDocuments     int
	TotalSize           int64
	LastUpdated         time.Time
}

// Stats computes content statistics for a collection. Counts come from the
// collection record; size, status breakdown and recency are derived from
// the documents.
func (r *Registry) Stats(ctx context.Context, id core.ID) (*Stats, error) {
	collection, err := r.collections.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}

	documents, err := r.documents.GetDocumentsByCollection(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents of collection %d: %w", id, err)
	}

	stats := &Stats{
		DocumentCount: collection.DocumentCount,
		TotalChunks:   collection.TotalChunks,
		LastUpdated:   collection.UpdatedAt,
	}

	for _, doc := range documents {
		stats.TotalSize += doc.FileSize
		switch doc.Status {
		case core.StatusPending, core.StatusProcessing:
			stats.ProcessingDocuments++
		case core.StatusFailed:
			stats.FailedDocuments++
		}
		if doc.UpdatedAt.After(stats.LastUpdated) {
			stats.LastUpdated = doc.UpdatedAt
		}
	}

	return stats, nil
}
