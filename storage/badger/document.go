package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocument adds a document to storage and increments the owning
// collection's document count in the same transaction.
func (r *DocumentRepository) AddDocument(ctx context.Context, document *core.Document) (*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		colKey := makeCollectionKey(document.CollectionId)
		collection, err := readCollection(tx, colKey)
		if err != nil {
			return err
		}
		if collection == nil {
			return storage.ErrNotFound
		}

		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		document.Id = core.ID(nextID)

		document.CreatedAt = time.Now().UTC()
		document.UpdatedAt = document.CreatedAt

		key := makeDocumentKey(document.Id)
		if err := tx.Set(key, storage.MarshalDocument(document)); err != nil {
			return err
		}

		// Collection index
		colIdxKey := makeDocumentColKey(document.CollectionId, document.Id)
		if err := tx.Set(colIdxKey, storage.MarshalID(document.Id)); err != nil {
			return err
		}

		// Derived count on the collection
		collection.DocumentCount++
		collection.UpdatedAt = document.CreatedAt
		if err := tx.Set(colKey, storage.MarshalCollection(collection)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return document, nil
}

// UpdateDocument updates an existing document.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, document *core.Document) (*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(document.Id)

		old, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		// The collection index key embeds the collection ID; documents do
		// not move between collections.
		document.CollectionId = old.CollectionId
		document.CreatedAt = old.CreatedAt
		document.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalDocument(document)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return document, nil
}

// DeleteDocument removes a document and its chunks, adjusting the owning
// collection's derived counts.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)

		document, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if document == nil {
			return storage.ErrNotFound
		}

		removedChunks, err := deleteChunksForDocument(tx, id)
		if err != nil {
			return err
		}

		if err := tx.Delete(makeDocumentColKey(document.CollectionId, id)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}

		// Adjust the collection's derived counts. The collection may already
		// be gone if this delete is part of a collection cascade.
		colKey := makeCollectionKey(document.CollectionId)
		collection, err := readCollection(tx, colKey)
		if err != nil {
			return err
		}
		if collection != nil {
			collection.DocumentCount--
			collection.TotalChunks -= removedChunks
			collection.UpdatedAt = time.Now().UTC()
			if err := tx.Set(colKey, storage.MarshalCollection(collection)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var document *core.Document

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		document, err = readDocument(tx, makeDocumentKey(id))
		return err
	}, false)

	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, storage.ErrNotFound
	}
	return document, nil
}

// GetDocumentsByCollection retrieves all documents of a collection ordered by ID.
func (r *DocumentRepository) GetDocumentsByCollection(ctx context.Context, collectionID core.ID) ([]*core.Document, error) {
	var documents []*core.Document

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanDocumentIDsByCollection(tx, collectionID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			document, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if document != nil {
				documents = append(documents, document)
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(documents, func(a, b *core.Document) int {
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	return documents, nil
}

// readDocument reads a document record, returning nil if absent.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var document *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		document, err = storage.UnmarshalDocument(val)
		return err
	})
	return document, err
}

// scanDocumentIDsByCollection reads the collection index and returns the
// IDs of all documents in the collection, in index order.
func scanDocumentIDsByCollection(tx *badger.Txn, collectionID core.ID) ([]core.ID, error) {
	var ids []core.ID

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialDocumentColKey(collectionID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// deleteDocumentCascade removes a document record, its collection index
// entry, and its chunks. Collection counters are not touched; this is used
// by the collection cascade where the collection itself is being removed.
func deleteDocumentCascade(tx *badger.Txn, documentID, collectionID core.ID) error {
	if _, err := deleteChunksForDocument(tx, documentID); err != nil {
		return err
	}
	if err := tx.Delete(makeDocumentColKey(collectionID, documentID)); err != nil {
		return err
	}
	return tx.Delete(makeDocumentKey(documentID))
}
