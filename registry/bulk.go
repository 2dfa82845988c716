package registry

import (
	"context"
	"errors"

	"github.com/quillstone/docbase/core"
)

// ErrUnknownBulkAction indicates an unrecognized bulk action name.
var ErrUnknownBulkAction = errors.New("unknown bulk action")

// BulkAction names an operation applied to multiple collections at once.
type BulkAction string

const (
	BulkDelete     BulkAction = "delete"
	BulkActivate   BulkAction = "activate"
	BulkDeactivate BulkAction = "deactivate"
)

// BulkResult reports the outcome for one collection of a bulk operation.
type BulkResult struct {
	Id  core.ID
	Err error
}

// Bulk applies the action to each collection independently. A failure on
// one collection does not stop the others; every ID gets a result in input
// order. Returns ErrUnknownBulkAction without touching anything if the
// action is not recognized.
func (r *Registry) Bulk(ctx context.Context, action BulkAction, ids []core.ID) ([]BulkResult, error) {
	switch action {
	case BulkDelete, BulkActivate, BulkDeactivate:
	default:
		return nil, ErrUnknownBulkAction
	}

	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		var err error
		switch action {
		case BulkDelete:
			err = r.Delete(ctx, id)
		case BulkActivate:
			_, err = r.SetActive(ctx, id, true)
		case BulkDeactivate:
			_, err = r.SetActive(ctx, id, false)
		}
		if err != nil {
			r.logger.Warn("bulk action failed for collection", "action", action, "id", id, "err", err)
		}
		results = append(results, BulkResult{Id: id, Err: err})
	}

	return results, nil
}
