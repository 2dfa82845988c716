package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage"
)

func newTestRepos(t *testing.T) *MemoryRepositories {
	t.Helper()
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	t.Cleanup(repos.Close)
	return repos
}

func addTestCollection(t *testing.T, repos *MemoryRepositories, name string) *core.Collection {
	t.Helper()
	collection, err := repos.Collections.AddCollection(context.Background(), &core.Collection{
		Name:     name,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("Failed to add collection %q: %v", name, err)
	}
	return collection
}

func addTestDocument(t *testing.T, repos *MemoryRepositories, collectionID core.ID, filename string) *core.Document {
	t.Helper()
	document, err := repos.Documents.AddDocument(context.Background(), &core.Document{
		CollectionId: collectionID,
		Filename:     filename,
		FileType:     "txt",
		Status:       core.StatusPending,
	})
	if err != nil {
		t.Fatalf("Failed to add document %q: %v", filename, err)
	}
	return document
}

func TestCollectionBasics(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	added, err := repos.Collections.AddCollection(ctx, &core.Collection{
		Name:        "Manuals",
		Description: "product manuals",
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("Failed to add collection: %v", err)
	}
	if added.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added.CreatedAt.IsZero() || added.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}

	got, err := repos.Collections.GetCollection(ctx, added.Id)
	if err != nil {
		t.Fatalf("Failed to get collection: %v", err)
	}
	if got.Name != "Manuals" || got.Description != "product manuals" {
		t.Errorf("Got unexpected collection: %+v", got)
	}

	byName, err := repos.Collections.GetCollectionByName(ctx, "Manuals")
	if err != nil {
		t.Fatalf("Failed to get collection by name: %v", err)
	}
	if byName.Id != added.Id {
		t.Errorf("GetCollectionByName() ID = %d, want %d", byName.Id, added.Id)
	}

	if _, err := repos.Collections.GetCollection(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetCollection(missing) error = %v, want %v", err, storage.ErrNotFound)
	}
	if _, err := repos.Collections.GetCollectionByName(ctx, "Nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetCollectionByName(missing) error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCollectionDuplicateName(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	first := addTestCollection(t, repos, "Manuals")

	if _, err := repos.Collections.AddCollection(ctx, &core.Collection{Name: "Manuals", IsActive: true}); !errors.Is(err, storage.ErrDuplicateName) {
		t.Fatalf("AddCollection(duplicate) error = %v, want %v", err, storage.ErrDuplicateName)
	}

	// Deactivated collections keep their name reserved.
	first.IsActive = false
	if _, err := repos.Collections.UpdateCollection(ctx, first); err != nil {
		t.Fatalf("Failed to deactivate collection: %v", err)
	}
	if _, err := repos.Collections.AddCollection(ctx, &core.Collection{Name: "Manuals", IsActive: true}); !errors.Is(err, storage.ErrDuplicateName) {
		t.Errorf("AddCollection(name of inactive) error = %v, want %v", err, storage.ErrDuplicateName)
	}
}

func TestCollectionRename(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	collection := addTestCollection(t, repos, "Drafts")
	addTestCollection(t, repos, "Archive")

	collection.Name = "Published"
	if _, err := repos.Collections.UpdateCollection(ctx, collection); err != nil {
		t.Fatalf("Failed to rename collection: %v", err)
	}

	if _, err := repos.Collections.GetCollectionByName(ctx, "Drafts"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Old name still resolves after rename, error = %v", err)
	}
	renamed, err := repos.Collections.GetCollectionByName(ctx, "Published")
	if err != nil {
		t.Fatalf("New name does not resolve: %v", err)
	}
	if renamed.Id != collection.Id {
		t.Errorf("GetCollectionByName() ID = %d, want %d", renamed.Id, collection.Id)
	}

	// Renaming onto another collection's name must fail.
	collection.Name = "Archive"
	if _, err := repos.Collections.UpdateCollection(ctx, collection); !errors.Is(err, storage.ErrDuplicateName) {
		t.Errorf("UpdateCollection(colliding rename) error = %v, want %v", err, storage.ErrDuplicateName)
	}
}

func TestCollectionUpdatePreservesDerivedCounts(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	collection := addTestCollection(t, repos, "Manuals")
	addTestDocument(t, repos, collection.Id, "a.txt")
	addTestDocument(t, repos, collection.Id, "b.txt")

	// A caller updating from a stale snapshot must not clobber the counters.
	collection.Description = "updated"
	updated, err := repos.Collections.UpdateCollection(ctx, collection)
	if err != nil {
		t.Fatalf("Failed to update collection: %v", err)
	}
	if updated.DocumentCount != 2 {
		t.Errorf("DocumentCount after update = %d, want 2", updated.DocumentCount)
	}
}

func TestListCollections(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	addTestCollection(t, repos, "Active One")
	inactive := addTestCollection(t, repos, "Dormant")
	inactive.IsActive = false
	if _, err := repos.Collections.UpdateCollection(ctx, inactive); err != nil {
		t.Fatalf("Failed to deactivate collection: %v", err)
	}

	active, err := repos.Collections.ListCollections(ctx, false)
	if err != nil {
		t.Fatalf("Failed to list collections: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Active One" {
		t.Errorf("ListCollections(active) = %d collections, want just Active One", len(active))
	}

	all, err := repos.Collections.ListCollections(ctx, true)
	if err != nil {
		t.Fatalf("Failed to list all collections: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListCollections(all) = %d collections, want 2", len(all))
	}
}

func TestDeleteCollectionCascade(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	collection := addTestCollection(t, repos, "Doomed")
	document := addTestDocument(t, repos, collection.Id, "gone.txt")
	chunks, err := repos.Chunks.ReplaceDocumentChunks(ctx, document.Id, []*core.Chunk{
		{Index: 0, Content: "first"},
		{Index: 1, Content: "second"},
	})
	if err != nil {
		t.Fatalf("Failed to store chunks: %v", err)
	}

	if err := repos.Collections.DeleteCollection(ctx, collection.Id); err != nil {
		t.Fatalf("Failed to delete collection: %v", err)
	}

	if _, err := repos.Collections.GetCollection(ctx, collection.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Collection survived delete, error = %v", err)
	}
	if _, err := repos.Documents.GetDocument(ctx, document.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Document survived cascade, error = %v", err)
	}
	for _, chunk := range chunks {
		if _, err := repos.Chunks.GetChunk(ctx, chunk.Id); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Chunk %d survived cascade, error = %v", chunk.Id, err)
		}
	}

	if err := repos.Collections.DeleteCollection(ctx, collection.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteCollection(missing) error = %v, want %v", err, storage.ErrNotFound)
	}
}
