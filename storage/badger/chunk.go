package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	idSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}

	return &ChunkRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ChunkRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// ReplaceDocumentChunks atomically replaces all chunks of a document and
// marks it completed. The parent document is re-read inside the
// transaction: if it was deleted concurrently the new chunks are discarded
// and ErrNotFound is returned, so a reprocess can never resurrect a
// deleted document.
func (r *ChunkRepository) ReplaceDocumentChunks(ctx context.Context, documentID core.ID, chunks []*core.Chunk) ([]*core.Chunk, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		docKey := makeDocumentKey(documentID)
		document, err := readDocument(tx, docKey)
		if err != nil {
			return err
		}
		if document == nil {
			return storage.ErrNotFound
		}

		removed, err := deleteChunksForDocument(tx, documentID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, chunk := range chunks {
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
			chunk.Id = core.ID(nextID)
			chunk.DocumentId = documentID
			chunk.CreatedAt = now

			if err := tx.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			docIdxKey := makeChunkDocKey(documentID, chunk.Index, chunk.Id)
			if err := tx.Set(docIdxKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
		}

		document.CompleteProcessing(len(chunks))
		if err := tx.Set(docKey, storage.MarshalDocument(document)); err != nil {
			return err
		}

		// Keep the collection's chunk total in step.
		colKey := makeCollectionKey(document.CollectionId)
		collection, err := readCollection(tx, colKey)
		if err != nil {
			return err
		}
		if collection != nil {
			collection.TotalChunks += len(chunks) - removed
			collection.UpdatedAt = now
			if err := tx.Set(colKey, storage.MarshalCollection(collection)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// UpdateChunk updates an existing chunk.
func (r *ChunkRepository) UpdateChunk(ctx context.Context, chunk *core.Chunk) (*core.Chunk, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeChunkKey(chunk.Id)

		old, err := readChunk(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		// Parentage and position are immutable; edits touch content,
		// vector and metadata only.
		chunk.DocumentId = old.DocumentId
		chunk.Index = old.Index
		chunk.CreatedAt = old.CreatedAt

		if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// DeleteChunk removes a single chunk without renumbering the remaining
// chunk indices. The parent document's chunk count and the collection's
// total are decremented; the document itself is never deleted here.
func (r *ChunkRepository) DeleteChunk(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeChunkKey(id)

		chunk, err := readChunk(tx, key)
		if err != nil {
			return err
		}
		if chunk == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(makeChunkDocKey(chunk.DocumentId, chunk.Index, chunk.Id)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}

		now := time.Now().UTC()
		docKey := makeDocumentKey(chunk.DocumentId)
		document, err := readDocument(tx, docKey)
		if err != nil {
			return err
		}
		if document != nil {
			document.ChunkCount--
			document.UpdatedAt = now
			if err := tx.Set(docKey, storage.MarshalDocument(document)); err != nil {
				return err
			}

			colKey := makeCollectionKey(document.CollectionId)
			collection, err := readCollection(tx, colKey)
			if err != nil {
				return err
			}
			if collection != nil {
				collection.TotalChunks--
				collection.UpdatedAt = now
				if err := tx.Set(colKey, storage.MarshalCollection(collection)); err != nil {
					return err
				}
			}
		}

		return tx.Commit()
	}, true)
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var chunk *core.Chunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		chunk, err = readChunk(tx, makeChunkKey(id))
		return err
	}, false)

	if err != nil {
		return nil, err
	}
	if chunk == nil {
		return nil, storage.ErrNotFound
	}
	return chunk, nil
}

// GetChunksByDocument retrieves all chunks of a document in chunk index order.
func (r *ChunkRepository) GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		chunks, err = readChunksByDocument(tx, documentID)
		return err
	}, false)

	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// GetChunksByDocuments retrieves all chunks of the given documents ordered
// by chunk ID.
func (r *ChunkRepository) GetChunksByDocuments(ctx context.Context, documentIDs []core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, documentID := range documentIDs {
			docChunks, err := readChunksByDocument(tx, documentID)
			if err != nil {
				return err
			}
			chunks = append(chunks, docChunks...)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(chunks, func(a, b *core.Chunk) int {
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	return chunks, nil
}

// FindSimilarChunks scores embedded chunks of the given documents against
// the query vector with cosine similarity. Chunks without embeddings are
// skipped. Results are ordered by score descending, ties by chunk ID
// ascending (creation order) for determinism.
func (r *ChunkRepository) FindSimilarChunks(ctx context.Context, vector []float32, minSimilarity float64, documentIDs []core.ID, limit int) ([]*core.Chunk, []float64, error) {
	type scored struct {
		chunk *core.Chunk
		score float64
	}
	var matches []scored

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, documentID := range documentIDs {
			docChunks, err := readChunksByDocument(tx, documentID)
			if err != nil {
				return err
			}
			for _, chunk := range docChunks {
				if len(chunk.Vector) == 0 {
					continue
				}
				similarity := cosineSimilarity(vector, chunk.Vector)
				if similarity >= minSimilarity {
					matches = append(matches, scored{chunk: chunk, score: similarity})
				}
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, nil, err
	}

	slices.SortFunc(matches, func(a, b scored) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		if a.chunk.Id < b.chunk.Id {
			return -1
		}
		if a.chunk.Id > b.chunk.Id {
			return 1
		}
		return 0
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	chunks := make([]*core.Chunk, len(matches))
	scores := make([]float64, len(matches))
	for i, m := range matches {
		chunks[i] = m.chunk
		scores[i] = m.score
	}
	return chunks, scores, nil
}

// readChunk reads a chunk record, returning nil if absent.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// readChunksByDocument reads all chunks of a document via the document
// index, which yields ascending chunk index order.
func readChunksByDocument(tx *badger.Txn, documentID core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkDocKey(documentID)
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

		chunk, err := readChunk(tx, makeChunkKey(id))
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// deleteChunksForDocument removes all chunks and index entries of a
// document, returning how many chunks were removed.
func deleteChunksForDocument(tx *badger.Txn, documentID core.ID) (int, error) {
	chunks, err := readChunksByDocument(tx, documentID)
	if err != nil {
		return 0, err
	}
	for _, chunk := range chunks {
		if err := tx.Delete(makeChunkDocKey(documentID, chunk.Index, chunk.Id)); err != nil {
			return 0, err
		}
		if err := tx.Delete(makeChunkKey(chunk.Id)); err != nil {
			return 0, err
		}
	}
	return len(chunks), nil
}
