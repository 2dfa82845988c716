package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage"
)

// CollectionRepository implements storage.CollectionRepository for BadgerDB.
type CollectionRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.CollectionRepository = (*CollectionRepository)(nil)

// NewCollectionRepository creates a new CollectionRepository.
func NewCollectionRepository(backend *Backend) (*CollectionRepository, error) {
	idSeq, err := backend.GetSequence(collectionIDSeq)
	if err != nil {
		return nil, err
	}

	return &CollectionRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *CollectionRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *CollectionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddCollection adds a collection to storage.
func (r *CollectionRepository) AddCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Enforce case-sensitive name uniqueness across active and
		// inactive collections.
		nameKey := makeCollectionNameKey(collection.Name)
		if _, err := tx.Get(nameKey); err == nil {
			return storage.ErrDuplicateName
		} else if err != badger.ErrKeyNotFound {
			return err
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
		collection.Id = core.ID(nextID)

		collection.CreatedAt = time.Now().UTC()
		collection.UpdatedAt = collection.CreatedAt

		key := makeCollectionKey(collection.Id)
		if err := tx.Set(key, storage.MarshalCollection(collection)); err != nil {
			return err
		}
		if err := tx.Set(nameKey, storage.MarshalID(collection.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return collection, nil
}

// UpdateCollection updates an existing collection.
func (r *CollectionRepository) UpdateCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCollectionKey(collection.Id)

		old, err := readCollection(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		// Maintain the name index on rename; the uniqueness check excludes
		// the record being edited.
		if old.Name != collection.Name {
			newNameKey := makeCollectionNameKey(collection.Name)
			if _, err := tx.Get(newNameKey); err == nil {
				return storage.ErrDuplicateName
			} else if err != badger.ErrKeyNotFound {
				return err
			}
			if err := tx.Delete(makeCollectionNameKey(old.Name)); err != nil {
				return err
			}
			if err := tx.Set(newNameKey, storage.MarshalID(collection.Id)); err != nil {
				return err
			}
		}

		// Derived counters are owned by the document/chunk repositories.
		collection.DocumentCount = old.DocumentCount
		collection.TotalChunks = old.TotalChunks
		collection.CreatedAt = old.CreatedAt
		collection.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalCollection(collection)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return collection, nil
}

// DeleteCollection removes a collection, cascading to its documents and
// their chunks within a single transaction.
func (r *CollectionRepository) DeleteCollection(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCollectionKey(id)

		collection, err := readCollection(tx, key)
		if err != nil {
			return err
		}
		if collection == nil {
			return storage.ErrNotFound
		}

		// Cascade: documents of the collection, then each document's chunks.
		docIDs, err := scanDocumentIDsByCollection(tx, id)
		if err != nil {
			return err
		}
		for _, docID := range docIDs {
			if err := deleteDocumentCascade(tx, docID, id); err != nil {
				return err
			}
		}

		if err := tx.Delete(makeCollectionNameKey(collection.Name)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetCollection retrieves a single collection by ID.
func (r *CollectionRepository) GetCollection(ctx context.Context, id core.ID) (*core.Collection, error) {
	var collection *core.Collection

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		collection, err = readCollection(tx, makeCollectionKey(id))
		return err
	}, false)

	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, storage.ErrNotFound
	}
	return collection, nil
}

// GetCollectionByName retrieves a collection by exact name.
func (r *CollectionRepository) GetCollectionByName(ctx context.Context, name string) (*core.Collection, error) {
	var collection *core.Collection

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCollectionNameKey(name))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}

		var id core.ID
		if err := item.Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		collection, err = readCollection(tx, makeCollectionKey(id))
		return err
	}, false)

	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, storage.ErrNotFound
	}
	return collection, nil
}

// ListCollections retrieves all collections ordered by ID.
func (r *CollectionRepository) ListCollections(ctx context.Context, includeInactive bool) ([]*core.Collection, error) {
	var collections []*core.Collection

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collectionPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var collection *core.Collection
			if err := item.Value(func(val []byte) error {
				var err error
				collection, err = storage.UnmarshalCollection(val)
				return err
			}); err != nil {
				return err
			}
			if collection == nil {
				continue
			}
			if !includeInactive && !collection.IsActive {
				continue
			}
			collections = append(collections, collection)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(collections, func(a, b *core.Collection) int {
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	return collections, nil
}

// readCollection reads a collection record, returning nil if absent.
func readCollection(tx *badger.Txn, key []byte) (*core.Collection, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var collection *core.Collection
	err = item.Value(func(val []byte) error {
		var err error
		collection, err = storage.UnmarshalCollection(val)
		return err
	})
	return collection, err
}
