package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage"
)

func TestDocumentBasics(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	collection := addTestCollection(t, repos, "Manuals")

	added, err := repos.Documents.AddDocument(ctx, &core.Document{
		CollectionId:     collection.Id,
		Filename:         "guide.txt",
		OriginalFilename: "User Guide.txt",
		FileType:         "txt",
		FileSize:         128,
		Status:           core.StatusPending,
		CreatedBy:        "tester",
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	if added.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	got, err := repos.Documents.GetDocument(ctx, added.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if got.Filename != "guide.txt" || got.Status != core.StatusPending || got.FileSize != 128 {
		t.Errorf("Got unexpected document: %+v", got)
	}

	// Adding a document bumps the owning collection's count.
	updatedCol, err := repos.Collections.GetCollection(ctx, collection.Id)
	if err != nil {
		t.Fatalf("Failed to get collection: %v", err)
	}
	if updatedCol.DocumentCount != 1 {
		t.Errorf("DocumentCount = %d, want 1", updatedCol.DocumentCount)
	}

	if _, err := repos.Documents.GetDocument(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetDocument(missing) error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestAddDocumentUnknownCollection(t *testing.T) {
	repos := newTestRepos(t)

	_, err := repos.Documents.AddDocument(context.Background(), &core.Document{
		CollectionId: 424242,
		Filename:     "orphan.txt",
		Status:       core.StatusPending,
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddDocument(unknown collection) error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestUpdateDocument(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	collection := addTestCollection(t, repos, "Manuals")
	document := addTestDocument(t, repos, collection.Id, "guide.txt")

	document.StartProcessing()
	updated, err := repos.Documents.UpdateDocument(ctx, document)
	if err != nil {
		t.Fatalf("Failed to update document: %v", err)
	}
	if updated.Status != core.StatusProcessing {
		t.Errorf("Status = %s, want processing", updated.Status)
	}

	got, err := repos.Documents.GetDocument(ctx, document.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if got.Status != core.StatusProcessing {
		t.Errorf("Persisted status = %s, want processing", got.Status)
	}

	missing := &core.Document{Id: 9999, CollectionId: collection.Id, Filename: "x.txt"}
	if _, err := repos.Documents.UpdateDocument(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateDocument(missing) error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestDeleteDocumentCascade(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	collection := addTestCollection(t, repos, "Manuals")
	document := addTestDocument(t, repos, collection.Id, "guide.txt")
	keeper := addTestDocument(t, repos, collection.Id, "keep.txt")

	chunks, err := repos.Chunks.ReplaceDocumentChunks(ctx, document.Id, []*core.Chunk{
		{Index: 0, Content: "first"},
		{Index: 1, Content: "second"},
	})
	if err != nil {
		t.Fatalf("Failed to store chunks: %v", err)
	}
	if _, err := repos.Chunks.ReplaceDocumentChunks(ctx, keeper.Id, []*core.Chunk{
		{Index: 0, Content: "kept"},
	}); err != nil {
		t.Fatalf("Failed to store keeper chunk: %v", err)
	}

	if err := repos.Documents.DeleteDocument(ctx, document.Id); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}

	if _, err := repos.Documents.GetDocument(ctx, document.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Document survived delete, error = %v", err)
	}
	for _, chunk := range chunks {
		if _, err := repos.Chunks.GetChunk(ctx, chunk.Id); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Chunk %d survived cascade, error = %v", chunk.Id, err)
		}
	}

	updatedCol, err := repos.Collections.GetCollection(ctx, collection.Id)
	if err != nil {
		t.Fatalf("Failed to get collection: %v", err)
	}
	if updatedCol.DocumentCount != 1 {
		t.Errorf("DocumentCount = %d, want 1", updatedCol.DocumentCount)
	}
	if updatedCol.TotalChunks != 1 {
		t.Errorf("TotalChunks = %d, want 1", updatedCol.TotalChunks)
	}

	if err := repos.Documents.DeleteDocument(ctx, document.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteDocument(missing) error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestGetDocumentsByCollection(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	manuals := addTestCollection(t, repos, "Manuals")
	archive := addTestCollection(t, repos, "Archive")

	first := addTestDocument(t, repos, manuals.Id, "a.txt")
	second := addTestDocument(t, repos, manuals.Id, "b.txt")
	addTestDocument(t, repos, archive.Id, "elsewhere.txt")

	docs, err := repos.Documents.GetDocumentsByCollection(ctx, manuals.Id)
	if err != nil {
		t.Fatalf("Failed to get documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Got %d documents, want 2", len(docs))
	}
	if docs[0].Id != first.Id || docs[1].Id != second.Id {
		t.Errorf("Documents out of ID order: %d, %d", docs[0].Id, docs[1].Id)
	}

	empty, err := repos.Documents.GetDocumentsByCollection(ctx, 9999)
	if err != nil {
		t.Fatalf("Failed to get documents of missing collection: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Got %d documents for missing collection, want 0", len(empty))
	}
}
