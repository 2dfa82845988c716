package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/storage"
)

// SearchLogRepository implements storage.SearchLogRepository for BadgerDB.
type SearchLogRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.SearchLogRepository = (*SearchLogRepository)(nil)

// NewSearchLogRepository creates a new SearchLogRepository.
func NewSearchLogRepository(backend *Backend) (*SearchLogRepository, error) {
	idSeq, err := backend.GetSequence(searchLogIDSeq)
	if err != nil {
		return nil, err
	}

	return &SearchLogRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *SearchLogRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *SearchLogRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AppendSearchLog appends a search log entry.
func (r *SearchLogRepository) AppendSearchLog(ctx context.Context, log *core.SearchLog) (*core.SearchLog, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
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
		log.Id = core.ID(nextID)

		if log.CreatedAt.IsZero() {
			log.CreatedAt = time.Now().UTC()
		}

		if err := tx.Set(makeSearchLogKey(log.Id), storage.MarshalSearchLog(log)); err != nil {
			return err
		}

		dateKey := makeSearchLogDateKey(log.CreatedAt, log.Id)
		if err := tx.Set(dateKey, storage.MarshalID(log.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return log, nil
}

// GetSearchLogsByDateRange retrieves log entries where start <= CreatedAt < end,
// ordered by creation time.
func (r *SearchLogRepository) GetSearchLogsByDateRange(ctx context.Context, start, end time.Time) ([]*core.SearchLog, error) {
	var logs []*core.SearchLog

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(searchLogDatePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		startKey := makePartialSearchLogDateKey(start)
		endKey := makePartialSearchLogDateKey(end)

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			// The date index is BigEndian-ordered, so a lexicographic
			// comparison against the end bound terminates the range scan.
			if bytes.Compare(key[:len(endKey)], endKey) >= 0 {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			log, err := readSearchLog(tx, makeSearchLogKey(id))
			if err != nil {
				return err
			}
			if log != nil {
				logs = append(logs, log)
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return logs, nil
}

// readSearchLog reads a search log record, returning nil if absent.
func readSearchLog(tx *badger.Txn, key []byte) (*core.SearchLog, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var log *core.SearchLog
	err = item.Value(func(val []byte) error {
		var err error
		log, err = storage.UnmarshalSearchLog(val)
		return err
	})
	return log, err
}
